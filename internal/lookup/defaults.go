package lookup

import "github.com/sells-group/enrich-cli/internal/icp"

func defaultFile() File {
	return File{
		ParentDomains: map[string]string{
			"3M":                       "3m.com",
			"Alphabet":                 "abc.xyz",
			"Amazon":                   "amazon.com",
			"Berkshire Hathaway":       "berkshirehathaway.com",
			"Danaher":                  "danaher.com",
			"Dover Corporation":        "dovercorporation.com",
			"Emerson Electric":         "emerson.com",
			"Fortive":                  "fortive.com",
			"General Electric":         "ge.com",
			"Honeywell":                "honeywell.com",
			"Illinois Tool Works":      "itw.com",
			"Johnson & Johnson":        "jnj.com",
			"Meta Platforms":           "meta.com",
			"Microsoft":                "microsoft.com",
			"Nestlé":                   "nestle.com",
			"Procter & Gamble":         "pg.com",
			"Roper Technologies":       "ropertech.com",
			"Siemens":                  "siemens.com",
			"Thermo Fisher Scientific": "thermofisher.com",
			"Unilever":                 "unilever.com",
		},
		AggregatorHosts: []string{
			"zoominfo.com", "crunchbase.com", "dnb.com", "owler.com", "craft.co",
			"growjo.com", "rocketreach.co", "apollo.io", "cbinsights.com",
			"pitchbook.com", "manta.com", "buzzfile.com", "opencorporates.com",
			"macrotrends.net", "companiesmarketcap.com", "stockanalysis.com",
			"sec.gov", "annualreports.com", "bloomberg.com",
		},
		LowValueHosts: []string{
			"wikipedia.org", "wikidata.org", "glassdoor.com", "indeed.com",
			"yelp.com", "trustpilot.com", "g2.com", "capterra.com", "bbb.org",
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"youtube.com", "reddit.com", "yellowpages.com", "mapquest.com",
		},
		FreeEmailDomains: []string{
			"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com",
			"outlook.com", "live.com", "msn.com", "aol.com", "icloud.com",
			"me.com", "proton.me", "protonmail.com", "gmx.com", "mail.com",
			"zoho.com", "yandex.com",
		},
		RevenuePerEmployee: map[string]float64{
			"11": 250_000, "21": 1_200_000, "22": 1_500_000, "23": 300_000,
			"31": 400_000, "32": 450_000, "33": 400_000, "42": 1_100_000,
			"44": 250_000, "45": 250_000, "48": 250_000, "49": 200_000,
			"51": 500_000, "52": 600_000, "53": 400_000, "54": 200_000,
			"55": 400_000, "56": 90_000, "61": 100_000, "62": 120_000,
			"71": 110_000, "72": 70_000, "81": 100_000, "92": 150_000,
			fallbackKey: defaultRevenuePerEmployee,
		},
		IndustryAverageRevenue: map[string]float64{
			"23": 4_000_000, "31": 20_000_000, "32": 20_000_000, "33": 20_000_000,
			"42": 15_000_000, "44": 3_000_000, "45": 3_000_000, "51": 8_000_000,
			"52": 10_000_000, "54": 3_000_000, "56": 3_000_000, "62": 5_000_000,
			"72": 2_000_000, fallbackKey: 5_000_000,
		},
		ICPProfiles: icp.DefaultProfiles(),
	}
}
