// Package dedup flags leads that represent the same underlying person
// across capture channels. Resolution is advisory: duplicates are flagged
// and cross-referenced, never deleted or merged destructively.
package dedup

import (
	"sort"
	"strings"

	"trafficpool_backend/internal/trafficpool/domain"
	"trafficpool_backend/platform/phone"
)

// Resolve annotates IsDuplicate and MergedIdentities on the given leads and
// returns them in the original order. The pass is a fixed point: running it
// on its own output produces identical flags. Candidate groups are ordered
// by lead id before tie-breaking so iteration order never matters.
//
// Two leads are candidate duplicates when they share a normalized phone
// number, or share a normalized external handle across different capture
// channels.
func Resolve(leads []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, len(leads))
	for i, l := range leads {
		out[i] = l.Clone()
		// Previous flags are recomputed from scratch each pass.
		out[i].IsDuplicate = false
		out[i].MergedIdentities = nil
	}

	index := make(map[string]int, len(out))
	for i := range out {
		index[out[i].ID] = i
	}

	for _, group := range candidateGroups(out) {
		if len(group) < 2 {
			continue
		}

		primary := pickPrimary(out, index, group)
		for _, id := range group {
			i := index[id]
			if id != primary {
				out[i].IsDuplicate = true
			}
			out[i].MergedIdentities = mergeRefs(out[i].MergedIdentities, group, id)
		}
	}

	return out
}

// candidateGroups buckets leads by normalized identity keys and returns the
// groups sorted deterministically (keys, then member ids).
func candidateGroups(leads []domain.Lead) [][]string {
	byKey := map[string][]string{}

	add := func(key, id string) {
		if key == "" {
			return
		}
		byKey[key] = append(byKey[key], id)
	}

	for i := range leads {
		l := &leads[i]
		add(phoneKey(l.Phone), l.ID)
	}

	// Handle matches only count across different capture channels, so the
	// bucket key ignores the channel but the group is kept only when at
	// least two distinct channels appear in it.
	byHandle := map[string][]int{}
	for i := range leads {
		key := handleKey(leads[i].ExternalHandle)
		if key == "" {
			continue
		}
		byHandle[key] = append(byHandle[key], i)
	}
	for key, members := range byHandle {
		channels := map[domain.CaptureChannel]struct{}{}
		for _, i := range members {
			channels[leads[i].CaptureChannel] = struct{}{}
		}
		if len(channels) < 2 {
			continue
		}
		for _, i := range members {
			add("handle:"+key, leads[i].ID)
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([][]string, 0, len(keys))
	for _, k := range keys {
		ids := dedupeStrings(byKey[k])
		sort.Strings(ids)
		if len(ids) >= 2 {
			groups = append(groups, ids)
		}
	}
	return groups
}

// pickPrimary selects the group's primary record: richest interaction
// history, then earliest CreatedAt, then smallest id.
func pickPrimary(leads []domain.Lead, index map[string]int, group []string) string {
	primary := group[0]
	for _, id := range group[1:] {
		cur := leads[index[primary]]
		cand := leads[index[id]]
		switch {
		case len(cand.Interactions) > len(cur.Interactions):
			primary = id
		case len(cand.Interactions) == len(cur.Interactions) &&
			cand.CreatedAt.Before(cur.CreatedAt):
			primary = id
		case len(cand.Interactions) == len(cur.Interactions) &&
			cand.CreatedAt.Equal(cur.CreatedAt) && cand.ID < cur.ID:
			primary = id
		}
	}
	return primary
}

// mergeRefs adds every group member except self as a back-reference,
// keeping the result sorted and free of duplicates.
func mergeRefs(existing []string, group []string, self string) []string {
	seen := map[string]struct{}{}
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, id := range group {
		if id != self {
			seen[id] = struct{}{}
		}
	}

	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	return refs
}

func phoneKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return "phone:" + phone.NormalizeE164(trimmed)
}

func handleKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func dedupeStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
