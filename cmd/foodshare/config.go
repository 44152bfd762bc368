package main

import (
	"context"
	"fmt"

	"foodshare/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// loadConfig reads PREFIX_NAME variables, falling back to the bare NAME.
func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	switch c.StoreBackend {
	case types.StoreBackendMemory:
	case types.StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("set DATABASE_URL")
		}
	case types.StoreBackendFirestore:
		if c.FirestoreProjectID == "" {
			return nil, fmt.Errorf("set FIRESTORE_PROJECT_ID")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	return c, nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newLogger(c *types.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)

	return logger, nil
}
