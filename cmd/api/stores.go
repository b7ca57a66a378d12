package main

import (
	"context"
	"fmt"

	"jobboard/internal/infrastructure/config"
	"jobboard/internal/infrastructure/database"
	chatAdapter "jobboard/internal/pkg/chat/persistence/repository/adapter"
	chatRepo "jobboard/internal/pkg/chat/persistence/repository/port"
	identityAdapter "jobboard/internal/pkg/identity/persistence/repository/adapter"
	identityRepo "jobboard/internal/pkg/identity/persistence/repository/port"
)

// stores bundles the repositories of the configured store driver.
type stores struct {
	chats     chatRepo.ChatRepository
	companies identityRepo.CompanyRepository
	ping      func(ctx context.Context) error
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		chats := chatAdapter.NewMongoChatRepository(db)
		companies := identityAdapter.NewMongoCompanyRepository(db)
		if err := chats.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo: chat indexes: %w", err)
		}
		if err := companies.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo: company indexes: %w", err)
		}
		return &stores{
			chats:     chats,
			companies: companies,
			ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil

	default:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			chats:     chatAdapter.NewPgChatRepository(pool),
			companies: identityAdapter.NewPgCompanyRepository(pool),
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	}
}
