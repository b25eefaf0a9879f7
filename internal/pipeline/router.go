package pipeline

// TryInOrder implements the "try-in-order with commit-after-first-success"
// combinator behind LLM provider failover: attempt is called once per item,
// in order, until one reports success. Both chat_stream (commit after the
// first non-empty delta) and chat_json (commit after the first parseable
// JSON object) are built on this rather than an ad-hoc loop.
func TryInOrder[T any, R any](items []T, attempt func(item T, index int) (result R, ok bool), onFailure func(item T, index int)) (R, bool) {
	for i, item := range items {
		result, ok := attempt(item, i)
		if ok {
			return result, true
		}
		if onFailure != nil {
			onFailure(item, i)
		}
	}
	var zero R
	return zero, false
}
