package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lumalabs/luma-go/internal/authcache"
	"github.com/lumalabs/luma-go/internal/config"
	"github.com/lumalabs/luma-go/internal/luma"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const dashboardURL = "https://captures.lumalabs.ai/dashboard"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "luma",
		Short: "Submit captures to Luma AI for 3D reconstruction",
		Long: `Luma is a client for the Luma AI capture API.

It submits videos, zips of images, or image directories for 3D
reconstruction, checks processing status, and lists prior captures.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newClearAuthCmd())
	cmd.AddCommand(newCreditsCmd())

	return cmd
}

// newClient wires settings, the credential cache, and the stdin key
// prompt into an API client.
func newClient() (*luma.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := authcache.New(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	client := luma.NewClient(cfg, store)
	client.KeyPrompt = promptForKey
	return client, nil
}

func promptForKey() (string, error) {
	fmt.Printf("Enter your Luma API key (get one from %s): ", dashboardURL)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// authHint prints a pointer to the dashboard when a key failed
// verification, then hands the error back unchanged.
func authHint(err error) error {
	if errors.Is(err, luma.ErrInvalidAPIKey) {
		fmt.Fprintf(os.Stderr, "Invalid API key. Get one from %s\n", dashboardURL)
	}
	return err
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
