package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/splax/modulehub/internal/domain"
	apiclient "github.com/splax/modulehub/pkg/api/client"
)

const requestTimeout = 15 * time.Second

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

var apiBase string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against a registry and store the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if strings.TrimSpace(email) == "" {
			return errors.New("--email is required")
		}
		secret, err := resolvePassword(password, promptPassword)
		if err != nil {
			return err
		}

		cfg, _ := loadConfig()
		if strings.TrimSpace(apiBase) != "" {
			cfg.APIBaseURL = apiBase
		}
		client, err := apiclient.New(cfg.APIBaseURL)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		resp, err := client.Login(ctx, email, secret)
		if err != nil {
			return err
		}
		cfg.AccessToken = resp.Token
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", resp.User.Username, resp.AccountType)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user",
	RunE: withClient(func(ctx context.Context, c *apiclient.Client, args []string) error {
		profile, err := c.Me(ctx)
		if err != nil {
			return err
		}
		company := "-"
		if profile.Company != nil {
			company = profile.Company.CompanyName
		}
		fmt.Printf("%s <%s> %s/%s company=%s\n", profile.Username, profile.Email, profile.AccountType, profile.Role, company)
		return nil
	}),
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a new package",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		version, _ := cmd.Flags().GetString("version")
		docs, _ := cmd.Flags().GetString("docs")
		deps, _ := cmd.Flags().GetStringSlice("dependency")
		return withClient(func(ctx context.Context, c *apiclient.Client, _ []string) error {
			pkg, err := c.Publish(ctx, apiclient.PublishRequest{
				Name:          name,
				Description:   description,
				Version:       version,
				Documentation: docs,
				Dependencies:  deps,
			})
			if err != nil {
				return err
			}
			fmt.Printf("published %s v%s (%s)\n", pkg.Name, pkg.CurrentVersion, pkg.ID)
			return nil
		})(cmd, args)
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <package-id> <version>",
	Short: "Release a new version of a package",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		changelog, _ := cmd.Flags().GetString("changelog")
		return withClient(func(ctx context.Context, c *apiclient.Client, args []string) error {
			pkg, err := c.Release(ctx, args[0], args[1], changelog)
			if err != nil {
				return err
			}
			fmt.Printf("%s is now at v%s\n", pkg.Name, pkg.CurrentVersion)
			return nil
		})(cmd, args)
	},
}

var packagesCmd = &cobra.Command{
	Use:   "packages [query]",
	Short: "List or search the company catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quick, _ := cmd.Flags().GetBool("quick")
		return withClient(func(ctx context.Context, c *apiclient.Client, args []string) error {
			if len(args) == 1 {
				search := c.Search
				if quick {
					search = c.QuickSearch
				}
				hits, err := search(ctx, args[0])
				if err != nil {
					return err
				}
				for _, p := range hits {
					fmt.Printf("%s\t%s\tv%s\t%s\n", p.ID, p.Name, p.CurrentVersion, p.Company.CompanyName)
				}
				return nil
			}
			pkgs, err := c.ListPackages(ctx)
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Printf("%s\t%s\tv%s\t%s\n", p.ID, p.Name, p.CurrentVersion, p.Description)
			}
			return nil
		})(cmd, args)
	},
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <package-id>",
	Short: "Follow a package's releases",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *apiclient.Client, args []string) error {
		ids, err := c.Subscribe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("subscribed (%d packages followed)\n", len(ids))
		return nil
	}),
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <package-id>",
	Short: "Stop following a package",
	Args:  cobra.ExactArgs(1),
	RunE: withClient(func(ctx context.Context, c *apiclient.Client, args []string) error {
		ids, err := c.Unsubscribe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("unsubscribed (%d packages followed)\n", len(ids))
		return nil
	}),
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Show recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		markRead, _ := cmd.Flags().GetBool("mark-read")
		return withClient(func(ctx context.Context, c *apiclient.Client, _ []string) error {
			items, err := c.Notifications(ctx)
			if err != nil {
				return err
			}
			for _, n := range items {
				flag := " "
				if !n.Read {
					flag = "*"
				}
				fmt.Printf("%s %s  %s: %s\n", flag, n.CreatedAt.Local().Format(time.DateTime), n.Title, n.Message)
			}
			if markRead {
				return c.MarkRead(ctx)
			}
			return nil
		})(cmd, args)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream realtime notifications until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		meCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		profile, err := client.Me(meCtx)
		cancel()
		if err != nil {
			return err
		}
		fmt.Println("watching for notifications, press Ctrl+C to stop")
		return client.Watch(ctx, profile, func(n domain.RealtimeNotification) {
			fmt.Printf("[%s] %s: %s\n", n.Type, n.Title, n.Message)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, whoamiCmd, publishCmd, releaseCmd, packagesCmd, subscribeCmd, unsubscribeCmd, inboxCmd, watchCmd} {
		c.Flags().StringVar(&apiBase, "api", "", "API base URL (default from config or http://localhost:5001)")
	}
	loginCmd.Flags().String("email", "", "Email address")
	loginCmd.Flags().String("password", "", "Password (supply to avoid prompt)")
	publishCmd.Flags().String("name", "", "Package name")
	publishCmd.Flags().String("description", "", "Package description")
	publishCmd.Flags().String("version", "", "Initial version (default 0.0.0)")
	publishCmd.Flags().String("docs", "", "Documentation text")
	publishCmd.Flags().StringSlice("dependency", nil, "Dependency name (repeatable)")
	releaseCmd.Flags().String("changelog", "", "Release notes")
	packagesCmd.Flags().Bool("quick", false, "Substring match instead of ranked search")
	inboxCmd.Flags().Bool("mark-read", false, "Mark every notification as read after listing")
}

// resolvePassword returns the flag value verbatim, or prompts when it is blank.
func resolvePassword(flagValue string, prompt func() ([]byte, error)) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue, nil
	}
	bytes, err := prompt()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func promptPassword() ([]byte, error) {
	fmt.Print("Password: ")
	defer fmt.Print("\n")
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func withClient(fn func(context.Context, *apiclient.Client, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := authedClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		return fn(ctx, client, args)
	}
}

func authedClient() (*apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("not logged in, run `modulehub login` first")
	}
	base := cfg.APIBaseURL
	if strings.TrimSpace(apiBase) != "" {
		base = apiBase
	}
	return apiclient.New(base, apiclient.WithToken(cfg.AccessToken))
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "modulehub", "config.json"), nil
}
