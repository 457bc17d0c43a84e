package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/pongdash/internal/client/config"
)

// NewRootCommand строит дерево команд pongdash
func (c *Cli) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pongdash",
		Short:         "Terminal client for the pongdash game platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(c.io)
	root.SetErr(c.stderr)
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		c.newLoginCommand(),
		c.newRegisterCommand(),
		c.newLoginExternalCommand(),
		c.newLogoutCommand(),
		c.newStatusCommand(),
		c.newVerifyCommand(),
		c.newProfileCommand(),
		c.newFriendsCommand(),
		c.newMatchesCommand(),
		c.newOpenCommand(),
		c.newShellCommand(),
		c.newVersionCommand(),
	)

	return root
}

func (c *Cli) newLoginCommand() *cobra.Command {
	var email string
	var mock bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mock {
				return c.runMockLogin(cmd.Context())
			}
			return c.runLogin(cmd.Context(), email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	cmd.Flags().BoolVar(&mock, "mock", false, "development login without a server (requires --mock-login)")

	return cmd
}

func (c *Cli) newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRegister(cmd.Context())
		},
	}
}

func (c *Cli) newLoginExternalCommand() *cobra.Command {
	var returnPath string

	cmd := &cobra.Command{
		Use:   "login-external",
		Short: "Sign in through the external identity provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoginExternal(cmd.Context(), returnPath)
		},
	}
	cmd.Flags().StringVar(&returnPath, "return", "", "screen to open after sign in")

	return cmd
}

func (c *Cli) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.Bootstrap(cmd.Context())
			return c.runLogout(cmd.Context())
		},
	}
}

func (c *Cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context())
		},
	}
}

func (c *Cli) newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [code]",
		Short: "Confirm a two-factor code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.runVerify(cmd.Context(), args)
		},
	}
}

func (c *Cli) newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.runProfile(cmd.Context())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "name [display-name]",
			Short: "Change your display name",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.requireSession(cmd.Context()); err != nil {
					return err
				}
				return c.runProfileName(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:   "avatar [file]",
			Short: "Upload a new avatar image",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.requireSession(cmd.Context()); err != nil {
					return err
				}
				return c.runProfileAvatar(cmd.Context(), args)
			},
		},
	)

	return cmd
}

func (c *Cli) newFriendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List and manage friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.runFriends(cmd.Context(), nil)
		},
	}

	for _, action := range []string{friendsList, friendsAdd, friendsRemove, friendsAccept, friendsReject} {
		use := action
		nargs := cobra.ExactArgs(1)
		if action == friendsList {
			nargs = cobra.NoArgs
		} else {
			use += " <user-id>"
		}

		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: friendActionHelp[action],
			Args:  nargs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.requireSession(cmd.Context()); err != nil {
					return err
				}
				return c.runFriends(cmd.Context(), append([]string{action}, args...))
			},
		})
	}

	return cmd
}

func (c *Cli) newMatchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "Show your recent matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd.Context()); err != nil {
				return err
			}
			return c.runMatches(cmd.Context())
		},
	}
}

func (c *Cli) newOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Render a screen, e.g. /dashboard or /profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOpen(cmd.Context(), args[0])
		},
	}
}

func (c *Cli) newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with screen navigation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShell(cmd.Context())
		},
	}
}

func (c *Cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoApp: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.render(versionTemplate, c.build)
		},
	}
}
