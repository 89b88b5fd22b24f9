package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/victorgomez09/portal/internal/auth/database"
	"github.com/victorgomez09/portal/internal/auth/models"
	"github.com/victorgomez09/portal/internal/auth/service"
	"github.com/victorgomez09/portal/internal/auth/token"
	"github.com/victorgomez09/portal/internal/auth/validation"
	"github.com/victorgomez09/portal/internal/metrics"
)

const operatorIP = "portalctl"

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts directly in the database",
	}
	cmd.AddCommand(a.userCreateCmd(), a.userListCmd(), a.userStatusCmd())
	return cmd
}

// withAuthService opens the database from the config file and hands fn an AuthService over it.
func (a *app) withAuthService(ctx context.Context, fn func(*service.AuthService) error) error {
	cfg, err := a.serverConfig()
	if err != nil {
		return err
	}
	log := a.logger()
	defer log.Sync()

	db, err := database.NewSQLiteDB(ctx, cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := token.New(token.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:     cfg.Auth.Issuer,
	})
	if err != nil {
		return err
	}

	svc := service.NewAuthService(db, tokens, service.AuthConfig{
		BcryptCost: cfg.Auth.BcryptCost,
		Password:   validation.PolicyFromConfig(cfg.Auth.Password),
	}, nil, log, metrics.New())
	return fn(svc)
}

func (a *app) userCreateCmd() *cobra.Command {
	var in service.CreateUserInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, e.g. the first administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = models.Role(role)
			if in.Password == "" {
				pw, err := promptPassword(cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				in.Password = pw
			}

			return a.withAuthService(cmd.Context(), func(svc *service.AuthService) error {
				user, err := svc.CreateUser(cmd.Context(), nil, in, operatorIP)
				if err != nil {
					return describe(err)
				}
				if a.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), user)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (id %d)\n", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&in.FirstName, "first", "", "first name (required)")
	cmd.Flags().StringVar(&in.LastName, "last", "", "last name (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.Company, "company", "", "company")
	cmd.Flags().StringVar(&role, "role", string(models.RoleClient), "client or admin")
	cmd.Flags().StringVar(&in.Password, "password", "", "password; prompted without echo when omitted")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	var role, status, search string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.UserFilter{Role: models.Role(role), Status: models.Status(status), Search: search}
			if filter.Role != "" && !filter.Role.Valid() {
				return fmt.Errorf("invalid role %q", role)
			}
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}
			page, limit = validation.Pagination(page, limit)

			return a.withAuthService(cmd.Context(), func(svc *service.AuthService) error {
				users, p, err := svc.ListUsers(cmd.Context(), filter, page, limit)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), models.Paged[models.User]{Items: users, Pagination: p})
				}
				printUsers(cmd.OutOrStdout(), users, p)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&search, "search", "", "match email or name")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "page size (max 100)")
	return cmd
}

func (a *app) userStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|inactive|suspended>",
		Short: "Activate, deactivate or suspend an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			return a.withAuthService(cmd.Context(), func(svc *service.AuthService) error {
				user, err := svc.SetStatus(cmd.Context(), 0, id, models.Status(args[1]), operatorIP)
				if err != nil {
					return describe(err)
				}
				if a.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), user)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) is now %s\n", user.ID, user.Email, user.Status)
				return nil
			})
		},
	}
}

func printUsers(w io.Writer, users []models.User, p models.Page) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tSTATUS\tFAILED LOGINS")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%s\t%d\n", u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.Status, u.FailedLoginAttempts)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d, %d total\n", p.Page, max(p.TotalPages, 1), p.Total)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
