package chat

import "time"

// CountUnread aggregates message stamps into per conversation unread counts.
// A message counts as unread when its createdAt is strictly after the
// conversation's lastRead cutoff, or unconditionally when the cutoff is nil.
// Stamps authored by accountID never count.
func CountUnread(stamps []MessageStamp, accountID uint, lastRead map[uint]*time.Time) map[uint]int {
	counts := make(map[uint]int, len(lastRead))
	for _, stamp := range stamps {
		if stamp.SenderID == accountID {
			continue
		}
		cutoff := lastRead[stamp.ConversationID]
		if cutoff == nil || stamp.CreatedAt.After(*cutoff) {
			counts[stamp.ConversationID]++
		}
	}
	return counts
}

// EarliestCutoff returns the oldest lastRead across the conversations when
// every conversation has one, letting the stamp query skip messages no
// conversation could count as unread. If any cutoff is nil the query must
// fetch everything, so nil is returned. Either way CountUnread produces
// identical counts; this only narrows the candidate set.
func EarliestCutoff(conversationIDs []uint, lastRead map[uint]*time.Time) *time.Time {
	var earliest *time.Time
	for _, id := range conversationIDs {
		cutoff, ok := lastRead[id]
		if !ok || cutoff == nil {
			return nil
		}
		if earliest == nil || cutoff.Before(*earliest) {
			earliest = cutoff
		}
	}
	return earliest
}

// BuildMessagePage turns raw page rows, fetched newest first with a one row
// over-fetch, into an ascending page. The extra row, when present, is
// dropped and signals more history behind NextCursor.
func BuildMessagePage(rows []*Message, limit int) *MessagePage {
	page := &MessagePage{}
	if len(rows) > limit {
		page.HasMore = true
		rows = rows[:limit]
	}
	// Reverse into ascending createdAt order for chat window rendering.
	page.Messages = make([]*Message, len(rows))
	for i, msg := range rows {
		page.Messages[len(rows)-1-i] = msg
	}
	if page.HasMore && len(page.Messages) > 0 {
		cursor := page.Messages[0].CreatedAt
		page.NextCursor = &cursor
	}
	return page
}
