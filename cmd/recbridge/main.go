package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string // Only config path for CLI commands
}

// APIFlags holds daemon connection flags shared by remote commands
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// RoomFlags holds room-related flags
type RoomFlags struct {
	RoomID     int64
	Vendor     string
	Instance   string
	AutoRecord bool
	APIFlags
}

// InstanceFlags holds instance management flags
type InstanceFlags struct {
	Name   string
	Vendor string
	URL    string
	Manage bool
	User   string
	Pass   string
	Key    string
	APIFlags
}

// LoginFlags holds login command flags
type LoginFlags struct {
	Username  string
	Password  string
	ServerURL string
}

// buildRoot creates the root command with improved structure
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}

	cli := command{session: NewSessionManager()}

	root := createRootCommand(globalFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createRoomsCommand(cli),
		createRoomCommand(cli),
		createInstanceCommand(cli),
		createLoginCommand(cli),
		createLogoutCommand(cli),
	)

	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "recbridge",
		Short: "Unified control plane for live-stream recording servers",
		Long: `Recbridge aggregates multiple recording-server instances behind one API,
merging room listings and fanning control operations out per vendor.

Examples:
  recbridge serve --config=config.yaml
  recbridge rooms                                  # Merged room listing
  recbridge room start --room=123456               # Start recording everywhere
  recbridge instance list --api-url=http://remote:11111/api`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to YAML config file (optional)")

	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "daemon URL (e.g. http://host:11111/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func addFilterFlags(cmd *cobra.Command, f *RoomFlags) {
	cmd.Flags().StringVar(&f.Vendor, "vendor", "", "restrict to one vendor (recheme or blrec)")
	cmd.Flags().StringVar(&f.Instance, "instance", "", "restrict to one named instance")
}

// createRoomsCommand creates the rooms listing subcommand
func createRoomsCommand(cli command) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List rooms across all instances",
		Long: `List recording tasks merged from every registered instance.
Each entry carries a recServer block naming the instance it came from.

Examples:
  recbridge rooms
  recbridge rooms --vendor=blrec
  recbridge rooms --api-url=http://remote:11111/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Rooms(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "restrict to one vendor (recheme or blrec)")
	addAPIFlags(cmd, &flags.APIFlags)

	return cmd
}

// createRoomCommand creates the room command with action subcommands
func createRoomCommand(cli command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Per-room operations",
		Long: `Operate on a single room across matching instances.

Examples:
  recbridge room get --room=123456
  recbridge room create --room=123456 --vendor=blrec
  recbridge room stop --room=123456 --instance=rec-main`,
	}

	cmd.AddCommand(
		createRoomGetCommand(cli),
		createRoomCreateCommand(cli),
		createRoomDeleteCommand(cli),
		createRoomActionCommand(cli, "start", "Start recording a room"),
		createRoomActionCommand(cli, "stop", "Stop recording a room"),
		createRoomActionCommand(cli, "split", "Split the current recording file"),
		createRoomActionCommand(cli, "refresh", "Refresh cached room metadata"),
		createRoomStatsCommand(cli),
	)

	return cmd
}

func createRoomGetCommand(cli command) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Look up one room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RoomGet(*flags)
		},
	}

	cmd.Flags().Int64Var(&flags.RoomID, "room", 0, "room ID (required)")
	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "restrict to one vendor (recheme or blrec)")
	addAPIFlags(cmd, &flags.APIFlags)
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}

	return cmd
}

func createRoomCreateCommand(cli command) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a recording task for a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RoomCreate(*flags)
		},
	}

	cmd.Flags().Int64Var(&flags.RoomID, "room", 0, "room ID (required)")
	cmd.Flags().BoolVar(&flags.AutoRecord, "auto-record", true, "record automatically when the stream goes live")
	addFilterFlags(cmd, flags)
	addAPIFlags(cmd, &flags.APIFlags)
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}

	return cmd
}

func createRoomDeleteCommand(cli command) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a recording task for a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RoomDelete(*flags)
		},
	}

	cmd.Flags().Int64Var(&flags.RoomID, "room", 0, "room ID (required)")
	addFilterFlags(cmd, flags)
	addAPIFlags(cmd, &flags.APIFlags)
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}

	return cmd
}

func createRoomActionCommand(cli command, action, short string) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RoomAction(action, *flags)
		},
	}

	cmd.Flags().Int64Var(&flags.RoomID, "room", 0, "room ID (required)")
	addFilterFlags(cmd, flags)
	addAPIFlags(cmd, &flags.APIFlags)
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}

	return cmd
}

func createRoomStatsCommand(cli command) *cobra.Command {
	flags := &RoomFlags{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-room recording statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RoomStats(*flags)
		},
	}

	cmd.Flags().Int64Var(&flags.RoomID, "room", 0, "room ID (required)")
	addFilterFlags(cmd, flags)
	addAPIFlags(cmd, &flags.APIFlags)
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}

	return cmd
}

// createInstanceCommand creates the instance command with subcommands
func createInstanceCommand(cli command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Backend instance management commands",
		Long: `Manage the registered recording-server instances.

Examples:
  recbridge instance list
  recbridge instance add --name=rec-main --vendor=recheme --url=http://10.0.0.2:8000
  recbridge instance status`,
	}

	cmd.AddCommand(
		createInstanceListCommand(cli),
		createInstanceStatusCommand(cli),
		createInstanceAddCommand(cli),
		createInstanceRemoveCommand(cli),
	)

	return cmd
}

func createInstanceListCommand(cli command) *cobra.Command {
	flags := &InstanceFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.InstanceList(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "restrict to one vendor (recheme or blrec)")
	addAPIFlags(cmd, &flags.APIFlags)

	return cmd
}

func createInstanceStatusCommand(cli command) *cobra.Command {
	flags := &InstanceFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe each instance for reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.InstanceStatus(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "restrict to one vendor (recheme or blrec)")
	cmd.Flags().StringVar(&flags.Name, "instance", "", "restrict to one named instance")
	addAPIFlags(cmd, &flags.APIFlags)

	return cmd
}

func createInstanceAddCommand(cli command) *cobra.Command {
	flags := &InstanceFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new instance",
		Long: `Register a new recording-server instance with the daemon.
The instance is persisted to the daemon's config file.

Examples:
  recbridge instance add --name=rec-main --vendor=recheme --url=http://10.0.0.2:8000 --user=admin --pass=secret
  recbridge instance add --name=blrec-1 --vendor=blrec --url=http://10.0.0.3:2233 --key=bili2233
  recbridge instance add --name=viewer --vendor=blrec --url=http://10.0.0.4:2233 --manage=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.InstanceAdd(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Name, "name", "", "instance name (required)")
	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "vendor: recheme or blrec (required)")
	cmd.Flags().StringVar(&flags.URL, "url", "", "instance base URL (required)")
	cmd.Flags().BoolVar(&flags.Manage, "manage", true, "allow mutating operations on this instance")
	cmd.Flags().StringVar(&flags.User, "user", "", "basic auth username (recheme)")
	cmd.Flags().StringVar(&flags.Pass, "pass", "", "basic auth password (recheme)")
	cmd.Flags().StringVar(&flags.Key, "key", "", "API key (blrec)")
	addAPIFlags(cmd, &flags.APIFlags)

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("vendor"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("url"); err != nil {
		panic(err)
	}

	return cmd
}

func createInstanceRemoveCommand(cli command) *cobra.Command {
	flags := &InstanceFlags{}

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Unregister an instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.InstanceRemove(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Name, "name", "", "instance name (required)")
	cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "vendor: recheme or blrec (required)")
	addAPIFlags(cmd, &flags.APIFlags)

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("vendor"); err != nil {
		panic(err)
	}

	return cmd
}

// createLoginCommand creates the login command
func createLoginCommand(cli command) *cobra.Command {
	flags := &LoginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to recbridge server",
		Long: `Login to recbridge server and save session for future commands.

Examples:
  recbridge login --username=admin --password=secret
  recbridge login --server-url=http://remote:11111/api --username=admin --password=secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Login(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Username, "username", "", "username (required)")
	cmd.Flags().StringVar(&flags.Password, "password", "", "password (required)")
	cmd.Flags().StringVar(&flags.ServerURL, "server-url", "", "server URL (default: http://localhost:11111/api)")

	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// createLogoutCommand creates the logout command
func createLogoutCommand(cli command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Logout from recbridge server",
		Long: `Logout from recbridge server and clear saved session.

Examples:
  recbridge logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Logout()
		},
	}

	return cmd
}
