package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onclick-pay/onclick-web/internal/domain"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/platform/config"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/share"
)

// openStore loads configuration the same way the server does and connects the draft store.
func openStore(ctx context.Context, opts *rootOptions) (*drafts.Store, config.Config, error) {
	var overrides map[string]string
	if opts.backend != "" {
		overrides = map[string]string{"ONCLICK_STORAGE_BACKEND": opts.backend}
	}
	cfg, err := config.Load(ctx, config.WithEnvFile(opts.envFile), config.WithEnvMap(overrides))
	if err != nil {
		return nil, config.Config{}, err
	}
	kv, err := drafts.OpenKV(ctx, cfg.Storage)
	if err != nil {
		return nil, config.Config{}, err
	}
	store, err := drafts.NewStore(kv)
	if err != nil {
		_ = kv.Close()
		return nil, config.Config{}, err
	}
	return store, cfg, nil
}

func handleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Validate and check page handles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sanitize [raw]",
		Short: "Print the sanitized form of a handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := domain.SanitizeHandle(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), handle)
			if err := domain.ValidateHandle(handle); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check [handle]",
		Short: "Report whether a handle is available",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer store.Close()

			checker := registry.NewChecker(store, registry.WithLatency(0))
			res, err := checker.Check(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	})
	return cmd
}

func draftCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Read stored page drafts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [handle]",
		Short: "Print the stored record for a handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer store.Close()

			handle := domain.SanitizeHandle(args[0])
			rec, found, err := store.Lookup(ctx, handle)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no draft stored under %q", handle)
			}
			return writeJSON(cmd, rec)
		},
	})
	return cmd
}

func shareCmd(opts *rootOptions) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "share [handle]",
		Short: "Print the share links of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cfg, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer store.Close()
			if base == "" {
				base = cfg.Server.BaseURL
			}

			handle := domain.SanitizeHandle(args[0])
			draft, _ := store.Load(ctx, "", handle, domain.RoleCreator)
			draft.Handle = handle
			return writeJSON(cmd, share.For(base, draft))
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "Public base URL (defaults to ONCLICK_SERVER_BASE_URL)")
	return cmd
}

func qrCmd(opts *rootOptions) *cobra.Command {
	var (
		out  string
		base string
		size int
	)
	cmd := &cobra.Command{
		Use:   "qr [handle]",
		Short: "Write the QR code PNG of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := domain.SanitizeHandle(args[0])
			if err := domain.ValidateHandle(handle); err != nil {
				return err
			}
			if out == "" {
				return errors.New("--output is required")
			}
			if base == "" {
				cfg, err := config.Load(cmd.Context(), config.WithEnvFile(opts.envFile))
				if err != nil {
					return err
				}
				base = cfg.Server.BaseURL
			}
			png, err := share.QR(share.PageURL(base, handle, share.Preview{}), size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(png))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Destination PNG file")
	cmd.Flags().StringVar(&base, "base", "", "Public base URL (defaults to ONCLICK_SERVER_BASE_URL)")
	cmd.Flags().IntVar(&size, "size", share.DefaultQRSize, "Image size in pixels")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
