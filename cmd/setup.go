package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/crate/internal/config"
	"github.com/jfmyers9/crate/pkg/spotify"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure Spotify and OpenAI credentials",
	Long: `Configure the credentials crate needs and save them to the config file.

This command will:
1. Prompt for your Spotify application client id and secret
2. Verify them against the Spotify accounts service
3. Optionally prompt for an OpenAI API key used to interpret prompts

You can create a Spotify application at: https://developer.spotify.com/dashboard
Without an OpenAI key crate falls back to a built-in prompt parser.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("crate setup")
	fmt.Println("===========")
	fmt.Println()
	fmt.Println("You can create a Spotify application at: https://developer.spotify.com/dashboard")
	fmt.Println()

	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		fmt.Printf("Found existing Spotify credentials.\n")
		fmt.Printf("Client ID: %s\n", cfg.Spotify.ClientID)
		if !confirm(reader, "\nUse existing credentials? [Y/n]: ") {
			cfg.Spotify.ClientID = ""
			cfg.Spotify.ClientSecret = ""
		}
	}

	if cfg.Spotify.ClientID == "" {
		if cfg.Spotify.ClientID, err = prompt(reader, "Enter your Spotify Client ID: "); err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
	}
	if cfg.Spotify.ClientSecret == "" {
		if cfg.Spotify.ClientSecret, err = prompt(reader, "Enter your Spotify Client Secret: "); err != nil {
			return fmt.Errorf("failed to read client secret: %w", err)
		}
	}

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return fmt.Errorf("client id and secret are required")
	}

	fmt.Println("\nVerifying Spotify credentials...")
	client, err := spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to verify Spotify credentials: %w", err)
	}

	if cfg.OpenAI.APIKey == "" || !confirm(reader, "\nKeep the existing OpenAI API key? [Y/n]: ") {
		key, err := prompt(reader, "Enter your OpenAI API key (leave empty to skip): ")
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		cfg.OpenAI.APIKey = key
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath := config.GetConfigDir()
	fmt.Printf("\n✓ Spotify credentials verified\n")
	fmt.Printf("✓ Configuration saved to %s/config.yaml\n", configPath)
	fmt.Println("\nYou can now use 'crate serve' or 'crate generate'.")

	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm defaults to yes on empty input or read errors
func confirm(reader *bufio.Reader, label string) bool {
	fmt.Print(label)
	response, err := reader.ReadString('\n')
	if err != nil {
		response = "y"
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "" || response == "y" || response == "yes"
}
