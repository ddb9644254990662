package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pxs/internal/app"
	"pxs/internal/config"
	"pxs/internal/model"
	"pxs/internal/px"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "SaveAttachment").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// unlockIfEncrypted prompts for the passphrase when attachments are encrypted.
func unlockIfEncrypted(a *app.App) error {
	if !a.EncryptionEnabled() {
		return nil
	}
	passphrase, err := readPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	return a.Unlock(passphrase)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:          "pxs",
	Short:        "Attachment store and resource catalog",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Resources: %s\n", cfg.Resources.Root)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Attachments: %s (max age %d days)\n", cfg.Attachments.Dir, cfg.Attachments.MaxAgeDays)
		fmt.Printf("Metadata:    %s %s\n", cfg.Metadata.Type, cfg.Metadata.Path)
		fmt.Printf("Blobs:       %s\n", cfg.Blobs.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Resources:   %s\n", cfg.Resources.Root)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		if err := a.SetupKeys(passphrase); err != nil {
			return err
		}

		fmt.Printf("Public key:  %s\n", a.Config().Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", a.Config().Encryption.PrivateKeyPath)
		return nil
	},
}

// attach command
var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Manage attachments",
}

var attachSaveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Store a file as an attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mimeType, _ := cmd.Flags().GetString("type")

		a, err := newApp(cmd.Context(), "SaveAttachment")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.SaveAttachmentFile(args[0], mimeType)
		if err != nil {
			return fmt.Errorf("saving attachment: %w", err)
		}

		fmt.Println(id)
		return nil
	},
}

var attachGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show attachment metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context(), "GetAttachment")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.GetAttachment(args[0])
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, info)
		}
		fmt.Printf("ID:        %s\n", info.ID)
		fmt.Printf("Name:      %s\n", info.Name)
		fmt.Printf("Type:      %s\n", info.MimeType)
		fmt.Printf("Size:      %s\n", px.FormatSize(info.Size))
		fmt.Printf("Created:   %s\n", info.Created().Format("2006-01-02 15:04:05"))
		fmt.Printf("Encrypted: %v\n", info.Encrypted)
		fmt.Printf("Location:  %s\n", info.Path)
		return nil
	},
}

var attachCatCmd = &cobra.Command{
	Use:   "cat ID",
	Short: "Print attachment content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "GetAttachmentContent")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := unlockIfEncrypted(a); err != nil {
			return err
		}
		content, err := a.GetAttachmentContent(args[0])
		if err != nil {
			return err
		}

		fmt.Println(content)
		return nil
	},
}

var attachRmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Delete attachments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DeleteAttachment")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.DeleteAttachment(id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}
		}
		return nil
	},
}

var attachCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete attachments older than attachments.max_age_days",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CleanupOldFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.CleanupOldFiles()
		if err != nil {
			return err
		}

		fmt.Printf("Removed %d attachment(s)\n", n)
		return nil
	},
}

// res command
var resCmd = &cobra.Command{
	Use:   "res",
	Short: "Browse and edit resources",
}

func printResources(records []*model.ResourceRecord) {
	if len(records) == 0 {
		fmt.Println("No resources found.")
		return
	}
	for _, r := range records {
		fmt.Printf("%-36s  %-9s  %-7s  %8s  %s\n",
			r.ID, r.Protocol, r.Source, px.FormatSize(r.Size), r.Reference)
	}
}

var resScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context(), "ScanResources")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ScanResources(category)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, records)
		}
		printResources(records)
		return nil
	},
}

func printTree(w io.Writer, nodes []*model.ResourceTreeNode, indent string) {
	for _, n := range nodes {
		if n.IsLeaf {
			fmt.Fprintf(w, "%s%s  [%s]", indent, n.Title, n.Protocol)
			if n.Description != "" {
				fmt.Fprintf(w, "  %s", n.Description)
			}
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%s%s/\n", indent, n.Title)
		printTree(w, n.Children, indent+"  ")
	}
}

var resTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show resources grouped by folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		nested, _ := cmd.Flags().GetBool("nested")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd.Context(), "BuildResourceTree")
		if err != nil {
			return err
		}
		defer a.Close()

		build := a.BuildResourceTree
		if nested {
			build = a.BuildNestedResourceTree
		}
		tree, err := build(category)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(os.Stdout, tree)
		}
		printTree(os.Stdout, tree, "")
		return nil
	},
}

var resStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "GetResourceStats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.GetResourceStats()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, stats)
	},
}

var resCatCmd = &cobra.Command{
	Use:   "cat ID",
	Short: "Print resource content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ReadResourceContent")
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.ReadResourceContent(args[0])
		if err != nil {
			return err
		}

		fmt.Print(content)
		return nil
	},
}

var resWriteCmd = &cobra.Command{
	Use:   "write ID",
	Short: "Replace resource content with stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "UpdateResourceContent")
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		return a.UpdateResourceContent(args[0], string(data))
	},
}

var resWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan resources whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		a, err := newApp(cmd.Context(), "WatchResources")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ScanResources(category)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %d resource(s)\n", time.Now().Format(time.TimeOnly), len(records))

		return a.WatchResources(cmd.Context(), category, debounce, func(records []*model.ResourceRecord, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
				return
			}
			fmt.Printf("%s  %d resource(s)\n", time.Now().Format(time.TimeOnly), len(records))
		})
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// attach subcommands
	attachCmd.AddCommand(attachSaveCmd)
	attachSaveCmd.Flags().StringP("type", "t", "", "MIME type (inferred from the file name when empty)")
	attachCmd.AddCommand(attachGetCmd)
	attachGetCmd.Flags().Bool("json", false, "Print as JSON")
	attachCmd.AddCommand(attachCatCmd)
	attachCmd.AddCommand(attachRmCmd)
	attachCmd.AddCommand(attachCleanupCmd)

	// res subcommands
	for _, c := range []*cobra.Command{resScanCmd, resTreeCmd, resWatchCmd} {
		c.Flags().StringP("category", "c", model.CategoryPromptX, "Resource category")
	}
	resScanCmd.Flags().Bool("json", false, "Print as JSON")
	resTreeCmd.Flags().Bool("json", false, "Print as JSON")
	resTreeCmd.Flags().Bool("nested", false, "Mirror the full folder hierarchy")
	resWatchCmd.Flags().Duration("debounce", 250*time.Millisecond, "Quiet period before rescanning")
	resCmd.AddCommand(resScanCmd)
	resCmd.AddCommand(resTreeCmd)
	resCmd.AddCommand(resStatsCmd)
	resCmd.AddCommand(resCatCmd)
	resCmd.AddCommand(resWriteCmd)
	resCmd.AddCommand(resWatchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(resCmd)
}
