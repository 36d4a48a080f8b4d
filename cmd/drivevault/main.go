package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"drivevault/internal/app"
	"drivevault/internal/config"
	"drivevault/internal/drives"
	"drivevault/internal/password"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Mount", "Format").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassword prompts on the terminal without echoing.
func readPassword(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func printDevice(d drives.Device) {
	mount := "-"
	if d.IsMounted() {
		mount = d.MountPoint
	}
	enc := " "
	if d.IsEncrypted() {
		enc = "E"
	}
	fmt.Printf("%-12s %s %-10s %-14s %8s  %s\n",
		d.ID, enc, d.Filesystem, mount, formatBytes(d.CapacityBytes), d.Label)
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fGiB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMiB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKiB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drivevault",
	Short: "Removable drive security lifecycle controller",
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
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
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
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Backend:    %s\n", cfg.Backend.Type)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

// session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the login session",
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login USERNAME",
	Short: "Establish a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		username := args[0]
		s := &app.Session{
			UserID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(username)).String(),
			Username: username,
			Token:    uuid.New().String(),
		}
		if err := app.SaveSession(cfg.BaseDir, s); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Printf("Logged in as %s\n", username)
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Destroy the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		if err := app.ClearSession(cfg.BaseDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}

		fmt.Println("Logged out")
		return nil
	},
}

// devices command
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the drive inventory",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known drives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDevices")
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.ListDevices(context.Background())
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No drives detected.")
			return nil
		}

		for _, d := range devices {
			printDevice(d)
		}
		return nil
	},
}

var devicesRescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Re-enumerate attached drives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RescanDevices")
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.RescanDevices(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Detected %d drive(s)\n", len(devices))
		for _, d := range devices {
			printDevice(d)
		}
		return nil
	},
}

var devicesShowCmd = &cobra.Command{
	Use:   "show DRIVE",
	Short: "Show drive details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowDevice")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.ShowDevice(context.Background(), args[0])
		if err != nil {
			code := drives.ClassifyError(err)
			return fmt.Errorf("%s: %w", code, err)
		}

		fmt.Printf("ID:          %s\n", d.ID)
		fmt.Printf("Device:      %s\n", d.DevicePath)
		fmt.Printf("Label:       %s\n", d.Label)
		fmt.Printf("Filesystem:  %s\n", d.Filesystem)
		fmt.Printf("Encrypted:   %v\n", d.IsEncrypted())
		fmt.Printf("Capacity:    %s\n", formatBytes(d.CapacityBytes))
		fmt.Printf("Available:   %s\n", formatBytes(d.AvailableBytes))
		if d.IsMounted() {
			fmt.Printf("Mounted at:  %s\n", d.MountPoint)
		} else {
			fmt.Printf("Mounted at:  -\n")
		}
		fmt.Printf("Trust:       %s\n", drives.UITrust(d.TrustLevel))
		fmt.Printf("Backups:     %d\n", d.BackupCount)
		if d.LastBackupAt != nil {
			fmt.Printf("Last backup: %s\n", d.LastBackupAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// mount command
var mountCmd = &cobra.Command{
	Use:   "mount DRIVE",
	Short: "Mount a drive, unlocking it if encrypted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mountPoint, _ := cmd.Flags().GetString("mount-point")
		plain, _ := cmd.Flags().GetBool("plain")

		a, err := newApp("Mount")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		ctx := context.Background()

		var outcome drives.MountOutcome
		if plain {
			outcome, err = a.MountDevice(ctx, args[0], mountPoint)
		} else {
			outcome, err = a.UnlockDevice(ctx, args[0], mountPoint, app.PasswordPrompt{
				ReadPassword: readPassword,
				ConfirmSave:  confirmSavePrompt,
			})
		}
		if err != nil {
			a.MarkFailed()
			return err
		}

		if !outcome.Success {
			a.MarkFailed()
			return fmt.Errorf("%s: %s", outcome.Code, outcome.Message)
		}

		fmt.Println(outcome.Message)
		return nil
	},
}

// confirmSavePrompt asks whether to cache the password just used.
func confirmSavePrompt() (bool, string, error) {
	fmt.Fprint(os.Stderr, "Save password for automatic unlock? [y/N]: ")
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		return false, "", nil
	}

	fmt.Fprint(os.Stderr, "Password hint (optional): ")
	reader := make([]byte, 256)
	n, _ := os.Stdin.Read(reader)
	hint := strings.TrimSpace(string(reader[:n]))
	return true, hint, nil
}

// unmount command
var unmountCmd = &cobra.Command{
	Use:   "unmount DRIVE",
	Short: "Unmount a drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Unmount")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		outcome, err := a.UnmountDevice(context.Background(), args[0])
		if err != nil {
			a.MarkFailed()
			return err
		}

		if !outcome.Success {
			a.MarkFailed()
			return fmt.Errorf("%s: %s", outcome.Code, outcome.Message)
		}

		fmt.Println(outcome.Message)
		return nil
	},
}

// format command
var formatCmd = &cobra.Command{
	Use:   "format DRIVE",
	Short: "Format and encrypt a drive (DESTROYS ALL DATA)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		generate, _ := cmd.Flags().GetBool("generate")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			fmt.Fprintf(os.Stderr, "This will DESTROY ALL DATA on %s. Type the drive name to continue: ", args[0])
			var answer string
			fmt.Fscanln(os.Stdin, &answer)
			if answer != args[0] {
				return fmt.Errorf("confirmation did not match, aborting")
			}
		}

		var pw, confirm string
		if generate {
			gen := password.NewGenerator()
			result, err := gen.Generate(password.DefaultPolicy())
			if err != nil {
				return fmt.Errorf("generating password: %w", err)
			}
			pw, confirm = result.Password, result.Password
			fmt.Printf("Generated password: %s\n", result.Password)
			fmt.Printf("Strength: %s (%.0f bits)\n", result.Strength, result.EntropyBits)
			fmt.Println("Store this password now; it will not be shown again.")
		} else {
			var err error
			pw, err = readPassword("New drive password")
			if err != nil {
				return err
			}
			confirm, err = readPassword("Confirm password")
			if err != nil {
				return err
			}
		}

		a, err := newApp("Format")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		outcome, err := a.FormatDevice(context.Background(), args[0], pw, confirm, label, func(job drives.FormatJob) {
			fmt.Printf("[%3d%%] %-16s %s\n", job.Percent, job.Stage, job.Message)
		})
		if err != nil {
			a.MarkFailed()
			return err
		}

		if !outcome.Success {
			a.MarkFailed()
			if outcome.Code != "" {
				return fmt.Errorf("%s: %s (failed at %d%%)", outcome.Code, outcome.Message, outcome.Percent)
			}
			return fmt.Errorf("%s", outcome.Message)
		}

		fmt.Println(outcome.Message)
		return nil
	},
}

// trust command
var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage drive trust",
}

var trustSetCmd = &cobra.Command{
	Use:   "set DRIVE LEVEL",
	Short: "Set drive trust level (Full, Partial, Untrusted)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := drives.UITrustLevel(args[1])
		switch level {
		case drives.UITrustFull, drives.UITrustPartial, drives.UITrustUntrusted:
		default:
			return fmt.Errorf("unknown trust level %q (use Full, Partial or Untrusted)", args[1])
		}

		a, err := newApp("SetTrust")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0] + " " + args[1])

		if err := a.SetTrust(context.Background(), args[0], level); err != nil {
			a.MarkFailed()
			return err
		}

		fmt.Printf("Trust level for %s set to %s\n", args[0], level)
		return nil
	},
}

// passwords command
var passwordsCmd = &cobra.Command{
	Use:   "passwords",
	Short: "Manage cached drive passwords",
}

var passwordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached passwords (metadata only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListCredentials")
		if err != nil {
			return err
		}
		defer a.Close()

		creds, err := a.ListCredentials()
		if err != nil {
			return err
		}

		if len(creds) == 0 {
			fmt.Println("No cached passwords.")
			return nil
		}

		for _, c := range creds {
			lastUsed := "never"
			if c.LastUsed != nil {
				lastUsed = c.LastUsed.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-12s %-16s hint:%-20q last used: %s\n",
				c.DriveID, c.DriveLabel, c.PasswordHint, lastUsed)
		}
		return nil
	},
}

var passwordsForgetCmd = &cobra.Command{
	Use:   "forget DRIVE",
	Short: "Delete a cached password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ForgetCredential")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		if err := a.ForgetCredential(args[0]); err != nil {
			a.MarkFailed()
			return err
		}

		fmt.Printf("Forgot password for %s\n", args[0])
		return nil
	},
}

var passwordsHintCmd = &cobra.Command{
	Use:   "hint DRIVE HINT",
	Short: "Update a cached password's hint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("UpdateCredentialHint")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		if err := a.UpdateCredentialHint(args[0], args[1]); err != nil {
			a.MarkFailed()
			return err
		}

		fmt.Printf("Hint updated for %s\n", args[0])
		return nil
	},
}

// genpw command
var genpwCmd = &cobra.Command{
	Use:   "genpw",
	Short: "Generate a secure password",
	RunE: func(cmd *cobra.Command, args []string) error {
		length, _ := cmd.Flags().GetInt("length")
		noSymbols, _ := cmd.Flags().GetBool("no-symbols")
		allowSimilar, _ := cmd.Flags().GetBool("allow-similar")
		high, _ := cmd.Flags().GetBool("high-entropy")

		policy := password.DefaultPolicy()
		policy.Length = length
		policy.Symbols = !noSymbols
		policy.ExcludeSimilar = !allowSimilar
		policy.HighEntropy = high

		gen := password.NewGenerator()
		result, err := gen.Generate(policy)
		if err != nil {
			return err
		}

		fmt.Println(result.Password)
		fmt.Fprintf(os.Stderr, "Strength: %s (%.0f bits)\n", result.Strength, result.EntropyBits)
		return nil
	},
}

// backups command
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Track backups stored on drives",
}

var backupsRecordCmd = &cobra.Command{
	Use:   "record DRIVE SIZE [CHECKSUM]",
	Short: "Record that a backup landed on a drive",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", args[1], err)
		}
		checksum := ""
		if len(args) > 2 {
			checksum = args[2]
		}

		a, err := newApp("RecordBackup")
		if err != nil {
			return err
		}
		defer a.Close()
		a.SetOperationParameters(args[0])

		if err := a.RecordBackup(args[0], size, checksum); err != nil {
			a.MarkFailed()
			return err
		}

		fmt.Printf("Recorded backup of %s on %s\n", formatBytes(size), args[0])
		return nil
	},
}

var backupsStatsCmd = &cobra.Command{
	Use:   "stats DRIVE",
	Short: "Show backup stats for a drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupStats")
		if err != nil {
			return err
		}
		defer a.Close()

		count, last, err := a.BackupStats(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Backups: %d\n", count)
		if last != nil {
			fmt.Printf("Last:    %s\n", last.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-20s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	sessionCmd.AddCommand(sessionLoginCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRescanCmd)
	devicesCmd.AddCommand(devicesShowCmd)

	trustCmd.AddCommand(trustSetCmd)

	passwordsCmd.AddCommand(passwordsListCmd)
	passwordsCmd.AddCommand(passwordsForgetCmd)
	passwordsCmd.AddCommand(passwordsHintCmd)

	backupsCmd.AddCommand(backupsRecordCmd)
	backupsCmd.AddCommand(backupsStatsCmd)

	mountCmd.Flags().String("mount-point", "", "Mount location (backend default when empty)")
	mountCmd.Flags().Bool("plain", false, "Mount without attempting to unlock")

	formatCmd.Flags().String("label", "", "Volume label for the new drive")
	formatCmd.Flags().Bool("generate", false, "Generate the password instead of prompting")
	formatCmd.Flags().BoolP("yes", "y", false, "Skip the destructive-operation confirmation")

	genpwCmd.Flags().IntP("length", "n", 16, "Password length (8-64)")
	genpwCmd.Flags().Bool("no-symbols", false, "Exclude symbol characters")
	genpwCmd.Flags().Bool("allow-similar", false, "Allow visually similar characters")
	genpwCmd.Flags().Bool("high-entropy", false, "XOR multiple CSPRNG streams")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(passwordsCmd)
	rootCmd.AddCommand(genpwCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(historyCmd)
}
