package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/cerr"
	"github.com/victorgomez09/portal/internal/session"
)

const (
	primaryFile = "primary.json"
	backupFile  = "backup.json"
)

func (a *app) sessionCmds() []*cobra.Command {
	return []*cobra.Command{
		a.loginCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.logoutCmd(),
		a.requestsCmd(),
	}
}

// withSession builds a Manager over the two token files and closes it after fn.
func (a *app) withSession(cmd *cobra.Command, fn func(*session.Manager) error) error {
	cfg, err := a.sessionConfig()
	if err != nil {
		return err
	}
	log := a.logger()
	defer log.Sync()

	opts := session.OptionsFromConfig(cfg,
		session.NewFileStore(filepath.Join(cfg.StoreDir, primaryFile)),
		session.NewFileStore(filepath.Join(cfg.StoreDir, backupFile)),
		log,
	)
	opts.OnCleared = func(reason string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Session ended (%s), please log in again\n", strings.ReplaceAll(reason, "_", " "))
	}

	m, err := session.New(opts)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

// boot restores the stored session and fails unless it is authenticated.
func boot(ctx context.Context, m *session.Manager) error {
	if err := m.Boot(ctx); err != nil {
		return fmt.Errorf("could not verify the stored session, it was kept: %w", err)
	}
	if m.State() != session.Authenticated {
		return errors.New("not logged in, run portalctl login")
	}
	return nil
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = pw
			}

			return a.withSession(cmd, func(m *session.Manager) error {
				user, err := m.Login(cmd.Context(), email, password)
				if err != nil {
					return describeRemote(err)
				}
				return a.printUser(cmd.OutOrStdout(), "Logged in as", user)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted without echo when omitted")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the stored session and show its user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(m *session.Manager) error {
				if err := boot(cmd.Context(), m); err != nil {
					return err
				}
				return a.printUser(cmd.OutOrStdout(), "Logged in as", m.User())
			})
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(m *session.Manager) error {
				if err := boot(cmd.Context(), m); err != nil {
					return err
				}
				if err := m.Refresh(cmd.Context()); err != nil {
					return describeRemote(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tokens refreshed")
				return nil
			})
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(m *session.Manager) error {
				if err := m.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func (a *app) requestsCmd() *cobra.Command {
	var status string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List your service requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			q.Set("page", fmt.Sprint(page))
			q.Set("limit", fmt.Sprint(limit))

			return a.withSession(cmd, func(m *session.Manager) error {
				if err := boot(cmd.Context(), m); err != nil {
					return err
				}
				var out models.Paged[models.ServiceRequest]
				if err := m.Call(cmd.Context(), http.MethodGet, "/api/client/requests?"+q.Encode(), nil, &out); err != nil {
					return describeRemote(err)
				}
				if a.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				printRequests(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "page size (max 100)")
	return cmd
}

func (a *app) printUser(w io.Writer, prefix string, u *models.User) error {
	if a.jsonOutput {
		return writeJSON(w, u)
	}
	_, err := fmt.Fprintf(w, "%s %s %s <%s> (%s)\n", prefix, u.FirstName, u.LastName, u.Email, u.Role)
	return err
}

func printRequests(w io.Writer, out models.Paged[models.ServiceRequest]) {
	if len(out.Items) == 0 {
		fmt.Fprintln(w, "No requests")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tTITLE\tSERVICE\tSTATUS\tUPDATED")
	for _, r := range out.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Reference, r.Title, r.ServiceType, r.Status, r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
	p := out.Pagination
	fmt.Fprintf(w, "page %d of %d, %d total\n", p.Page, max(p.TotalPages, 1), p.Total)
}

// describe turns a service error into the message the API would show.
func describe(err error) error {
	apiErr := cerr.FromError("portalctl", err)
	switch {
	case apiErr.Code == cerr.CodeInternal:
		return err
	case len(apiErr.Fields) > 0:
		return cerr.FieldErrors(apiErr.Fields)
	}
	return errors.New(apiErr.Message)
}

func describeRemote(err error) error {
	var se *session.StatusError
	if !errors.As(err, &se) {
		return err
	}
	if len(se.Fields) == 0 {
		return errors.New(se.Message)
	}
	fields := make(cerr.FieldErrors, 0, len(se.Fields))
	for _, f := range se.Fields {
		fields.Add(f.Field, f.Message)
	}
	return fields
}
