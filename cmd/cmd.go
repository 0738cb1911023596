package cmd

import (
	"fmt"
	"net"

	"github.com/igor04091968/v2panel/config"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the v2panel command tree. run starts the panel and
// blocks until it exits.
func NewRootCommand(run func() error) *cobra.Command {
	root := &cobra.Command{
		Use:           config.GetName(),
		Short:         "Operator console supervising a v2ray backend.",
		Version:       config.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return run()
		},
	}
	root.AddCommand(newAdminCommand(), newSettingCommand(), newSNICommand())
	return root
}

func newAdminCommand() *cobra.Command {
	var (
		reset    bool
		show     bool
		username string
		password string
	)
	c := &cobra.Command{
		Use:   "admin",
		Short: "Show or change the panel admin credentials.",
		RunE: func(c *cobra.Command, _ []string) error {
			switch {
			case reset:
				return resetAdmin()
			case show:
				return showAdmin()
			case username != "" || password != "":
				return updateAdmin(username, password)
			default:
				return c.Help()
			}
		},
	}
	c.Flags().BoolVarP(&reset, "reset", "r", false, "Reset admin credentials to admin/admin")
	c.Flags().BoolVarP(&show, "show", "s", false, "Show the first admin username")
	c.Flags().StringVarP(&username, "username", "u", "", "New admin username")
	c.Flags().StringVarP(&password, "password", "p", "", "New admin password")
	return c
}

func newSettingCommand() *cobra.Command {
	var (
		show  bool
		regen bool
		port  int
		path  string
	)
	c := &cobra.Command{
		Use:   "setting",
		Short: "Show or change the server configuration.",
		RunE: func(c *cobra.Command, _ []string) error {
			switch {
			case show:
				return showSetting()
			case regen:
				return regenerateSecret()
			case port != 0 || path != "":
				if port < 0 || port > 65535 {
					return fmt.Errorf("port %d out of range", port)
				}
				return updateSetting(port, path)
			default:
				return c.Help()
			}
		},
	}
	c.Flags().BoolVarP(&show, "show", "s", false, "Show panel settings and the server config")
	c.Flags().BoolVar(&regen, "regen-secret", false, "Generate a new client secret")
	c.Flags().IntVar(&port, "port", 0, "Backend local port")
	c.Flags().StringVar(&path, "path", "", "WebSocket path routed to the backend")
	return c
}

func newSNICommand() *cobra.Command {
	var port int
	c := &cobra.Command{
		Use:   "sni <domain>",
		Short: "Check whether a domain can serve as the server name hint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			report, err := checkSNI(c.Context(), args[0], port, net.DefaultResolver.LookupHost, nil)
			if err != nil {
				return err
			}
			printSNIReport(c.OutOrStdout(), report)
			return nil
		},
	}
	c.Flags().IntVar(&port, "port", 443, "TLS port to connect to")
	return c
}
