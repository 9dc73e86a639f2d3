package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

type output struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	Persisted  bool   `json:"persisted"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string; leave empty to skip persistence")
		force       = flag.Bool("force", false, "Persist even when a key pair already exists")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate VAPID keys:", err)
		os.Exit(1)
	}

	out := output{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}

	if *databaseURL != "" {
		if err := persist(*databaseURL, publicKey, privateKey, *force); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		out.Persisted = true
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println("WEB_PUSH_PUBLIC_KEY=" + out.PublicKey)
		fmt.Println("WEB_PUSH_PRIVATE_KEY=" + out.PrivateKey)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func persist(databaseURL, publicKey, privateKey string, force bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	if !force {
		existing, err := repo.LoadVAPIDKeyPair(ctx)
		if err == nil {
			return fmt.Errorf("a key pair already exists (created %s); use -force to add another", existing.CreatedAt.Format(time.RFC3339))
		}
	}

	pair := &model.VAPIDKeyPair{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.SaveVAPIDKeyPair(ctx, pair); err != nil {
		return fmt.Errorf("save key pair: %w", err)
	}
	return nil
}
