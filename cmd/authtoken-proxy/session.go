package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/dvcrn/authtoken-proxy/internal/token"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in; run `authtoken-proxy login` first")

func (c *cli) loginCmd() *cobra.Command {
	var accessToken, refreshToken string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access and refresh token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			pair := credentials.Pair{AccessToken: accessToken, RefreshToken: refreshToken}
			if err := c.app.Store.SetPair(cmd.Context(), pair); err != nil {
				return err
			}
			cmd.Printf("Stored tokens under %s\n", c.app.Store.Key())
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access token (JWT)")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token")
	_ = cmd.MarkFlagRequired("access-token")
	_ = cmd.MarkFlagRequired("refresh-token")

	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Store.Clear(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.app.Coordinator.Status(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Field", "Value"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAutoWrapText(false)

			table.Append([]string{"Storage key", c.app.Store.Key()})
			table.Append([]string{"Backend", c.app.Config.Storage.Backend})
			table.Append([]string{"Logged in", yesNo(st.LoggedIn)})
			if st.LoggedIn {
				expires := "unknown"
				if !st.ExpiresAt.IsZero() {
					expires = st.ExpiresAt.Local().Format(time.RFC3339)
				}
				table.Append([]string{"Expires at", expires})
				table.Append([]string{"Remaining", st.Remaining.Round(time.Second).String()})
				table.Append([]string{"Expired", yesNo(st.Expired)})
				table.Append([]string{"Needs refresh", yesNo(st.NeedsRefresh)})
			}
			table.Render()
			return nil
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a fresh access token, renewing it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := c.app.Coordinator
			var (
				accessToken string
				err         error
			)
			if force {
				accessToken, err = coord.Refresh(cmd.Context(), c.app.Renew)
			} else {
				accessToken, err = coord.EnsureFreshAccessToken(cmd.Context(), c.app.Renew)
			}
			if err != nil {
				return err
			}
			if accessToken == "" {
				return errNotLoggedIn
			}

			c.app.Logger.Debug().Str("access_token", token.Preview(accessToken)).Msg("Access token ready")
			fmt.Fprintln(cmd.OutOrStdout(), accessToken)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Renew even if the current token is still fresh")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
