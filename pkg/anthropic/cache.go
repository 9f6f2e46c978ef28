package anthropic

// CachedSystem builds a single system block with an ephemeral cache
// breakpoint. Analysis and link-validation prompts share a long static
// system prompt across every company in a batch.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "5m",
			},
		},
	}
}
