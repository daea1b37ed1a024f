package workers

import (
	"context"
	"log"
	"time"

	"finquestAPI/middleware"
	"finquestAPI/services"
)

// StartChallengeExpiryWorker sweeps overdue daily challenges in the
// background. Reads also expire lazily, so the sweep only exists to keep the
// table tidy and the metrics honest when a user never comes back.
func StartChallengeExpiryWorker(ctx context.Context, challengeService *services.ChallengeService) {
	ticker := time.NewTicker(15 * time.Minute)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expireOverdueChallenges(challengeService)
			}
		}
	}()
}

func expireOverdueChallenges(challengeService *services.ChallengeService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := challengeService.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("Challenge expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		middleware.CountChallengeExpirations(n)
		log.Printf("Challenge expiry sweep: expired %d challenges", n)
	}
}
