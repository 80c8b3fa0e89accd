package server

import (
	"sort"
	"time"

	"github.com/askroom/go-askroom/internal/database"
	"github.com/askroom/go-askroom/internal/types"
)

// BuildSnapshot derives the client view of a room from the room row and its
// question map. It is a pure function: a nil or empty map yields an empty
// question list, a missing title stays empty, and identical inputs always
// produce the same ordered output. Questions are ordered by creation time,
// with the id as a tie-break.
func BuildSnapshot(room database.Room, questions map[string]database.Question) types.RoomSnapshot {
	var endedAt *time.Time
	if room.EndedAt.Valid {
		t := room.EndedAt.Time
		endedAt = &t
	}

	list := make([]types.Question, 0, len(questions))
	for id, q := range questions {
		list = append(list, types.Question{
			Id:      id,
			Content: q.Content,
			Author: types.Author{
				Name:      q.AuthorName,
				AvatarUrl: q.AuthorAvatar,
			},
			IsAnswered:    q.IsAnswered,
			IsHighlighted: q.IsHighlighted,
			CreatedAt:     q.CreatedAt,
		})
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Id < list[j].Id
	})

	return types.RoomSnapshot{
		Id:        room.Id,
		Code:      room.Code,
		Title:     room.Title,
		EndedAt:   endedAt,
		Questions: list,
	}
}
