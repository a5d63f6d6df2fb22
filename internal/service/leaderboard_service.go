package service

import (
	"context"
	"time"

	"github.com/trash2cash/backend/internal/repository"
)

type LeaderboardEntry struct {
	Rank             int
	UserID           string
	Name             string
	AvatarURL        *string
	TotalTokens      int64
	TotalItems       int64
	TotalSubmissions int64
}

type LeaderboardService interface {
	Top(ctx context.Context, timeframe string, limit int) ([]LeaderboardEntry, error)
}

type leaderboardService struct {
	users repository.UserRepository
}

func NewLeaderboardService(users repository.UserRepository) LeaderboardService {
	return &leaderboardService{users: users}
}

func (s *leaderboardService) Top(ctx context.Context, timeframe string, limit int) ([]LeaderboardEntry, error) {
	var since *time.Time
	now := time.Now()
	switch timeframe {
	case "weekly":
		t := now.AddDate(0, 0, -7)
		since = &t
	case "monthly":
		t := now.AddDate(0, -1, 0)
		since = &t
	default: // alltime
	}

	rows, err := s.users.Leaderboard(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:             i + 1,
			UserID:           r.UserID,
			Name:             r.Name,
			AvatarURL:        r.AvatarURL,
			TotalTokens:      r.TotalTokens,
			TotalItems:       r.TotalItems,
			TotalSubmissions: r.TotalSubmissions,
		})
	}
	return entries, nil
}
