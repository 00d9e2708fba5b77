package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the subset of the Secrets Manager client used here
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DatabaseCredentials is the JSON document stored in the database secret
type DatabaseCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewSecretsClient creates a Secrets Manager client from the default AWS credential chain
func NewSecretsClient(ctx context.Context, region string) (*secretsmanager.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// ResolveDatabaseCredentials replaces the database user and password with the
// secret's values. Explicit credentials in the config win; nothing happens when no
// secret id is configured.
func ResolveDatabaseCredentials(ctx context.Context, cfg *Config, client SecretGetter) error {
	if cfg.Secrets.DatabaseSecretID == "" || cfg.Database.Password != "" {
		return nil
	}
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(cfg.Secrets.DatabaseSecretID),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return fmt.Errorf("failed to read secret %s: %w", cfg.Secrets.DatabaseSecretID, err)
	}
	if out.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", cfg.Secrets.DatabaseSecretID)
	}

	var creds DatabaseCredentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return fmt.Errorf("failed to parse secret %s: %w", cfg.Secrets.DatabaseSecretID, err)
	}
	if creds.Username != "" {
		cfg.Database.User = creds.Username
	}
	cfg.Database.Password = creds.Password
	return nil
}
