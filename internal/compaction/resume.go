package compaction

import "github.com/haasonsaas/wolo/pkg/models"

// ResumeView rebuilds the working view for a reloaded session from its
// summary records. Message files are never rewritten on compaction, so a
// plain load returns the full history with summaries sorted last. This
// replays the latest summary record instead: the summarized messages drop
// out and the summary moves ahead of its preserved window. Messages written
// after the record pass through. Without a summary record the load is
// returned as-is (tool pruning is view-only and re-applies on the next
// overflow).
func ResumeView(msgs []*models.Message, recs []*models.CompactionRecord) []*models.Message {
	var latest *models.CompactionRecord
	for _, rec := range recs {
		if rec.SummaryMessageID != "" {
			latest = rec
		}
	}
	if latest == nil {
		return msgs
	}

	preserved := make(map[string]bool, len(latest.PreservedMessageIDs))
	for _, id := range latest.PreservedMessageIDs {
		preserved[id] = true
	}

	var summary *models.Message
	var kept, tail []*models.Message
	for _, m := range msgs {
		switch {
		case m.ID == latest.SummaryMessageID:
			summary = m
		case preserved[m.ID]:
			kept = append(kept, m)
		case m.ID > latest.SummaryMessageID:
			// Minted after the summary, so written post-compaction.
			tail = append(tail, m)
		}
	}
	if summary == nil {
		return msgs
	}

	view := make([]*models.Message, 0, 1+len(kept)+len(tail))
	view = append(view, summary)
	view = append(view, kept...)
	return append(view, tail...)
}
