package search

import "sort"

const maxMergedImages = 10

// Merge combines responses from multiple sources into one ranked response.
// Results are ordered by descending score (missing scores rank as zero),
// deduplicated by URL keeping the highest-scored occurrence, and truncated
// to maxResults when it is positive. Images are deduplicated by URL and
// capped; the answer is the first non-empty answer across the inputs.
func Merge(maxResults int, responses ...*Response) *Response {
	merged := &Response{}

	var all []Result
	for _, res := range responses {
		if res == nil {
			continue
		}
		all = append(all, res.Results...)
		if merged.Answer == "" && res.Answer != "" {
			merged.Answer = res.Answer
		}
		if merged.Query == "" {
			merged.Query = res.Query
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	seen := make(map[string]bool, len(all))
	for _, r := range all {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		merged.Results = append(merged.Results, r)
	}
	if maxResults > 0 && len(merged.Results) > maxResults {
		merged.Results = merged.Results[:maxResults]
	}

	seenImages := make(map[string]bool)
	for _, res := range responses {
		if res == nil {
			continue
		}
		for _, img := range res.Images {
			if seenImages[img.URL] || len(merged.Images) >= maxMergedImages {
				continue
			}
			seenImages[img.URL] = true
			merged.Images = append(merged.Images, img)
		}
	}

	return merged
}
