package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"skillswap/internal/app/bootstrap"
	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	listingapp "skillswap/internal/app/handlers/listings"
	"skillswap/internal/app/services/auth"
	domainuser "skillswap/internal/domain/user"
)

type userFixture struct {
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Listings []listingFixture `json:"listings"`
}

type listingFixture struct {
	Name        string `json:"name"`
	Direction   string `json:"direction"`
	Description string `json:"description"`
}

// loadFixtures registers demo users with their listings. Users that already
// exist are skipped so restarts against a persistent store are harmless.
func loadFixtures(ctx context.Context, path string, authService *auth.Service, buses bootstrap.Buses, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []userFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, fx := range fixtures {
		res, err := authService.Register(ctx, auth.RegisterParams{
			Username: fx.Username,
			Email:    fx.Email,
			Password: fx.Password,
		})
		if err != nil {
			if errors.Is(err, domainuser.ErrUsernameTaken) {
				logger.Debug("fixture user exists", "username", fx.Username)
				continue
			}
			logger.Error("fixture user invalid", "username", fx.Username, "error", err)
			continue
		}
		for _, l := range fx.Listings {
			_, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](ctx, buses.Commands, listingapp.CreateListingCommand{
				OwnerID:     string(res.User.ID),
				Name:        l.Name,
				Direction:   l.Direction,
				Description: l.Description,
			})
			if err != nil {
				logger.Error("fixture listing invalid", "username", fx.Username, "listing", l.Name, "error", err)
			}
		}
		logger.Info("fixture user imported", "username", fx.Username, "listings", len(fx.Listings))
	}
	return nil
}
