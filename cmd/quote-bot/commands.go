package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jakelee-bot/google-form-automation/internal/config"
	"github.com/jakelee-bot/google-form-automation/internal/httpapi"
	mcpserver "github.com/jakelee-bot/google-form-automation/internal/mcp"
	"github.com/jakelee-bot/google-form-automation/internal/pages"
	"github.com/jakelee-bot/google-form-automation/internal/service"
)

type cli struct {
	v   *viper.Viper
	app *app
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "quote-bot",
		Short: "Turn license quote request messages into submitted quote forms",
		Long: `quote-bot reads a license quote request (pasted text, an email, an HTML
body or a PDF), extracts the requester's details and fills in the
multi-page quote request form in a browser.

Usage:
  quote-bot parse request.eml
  quote-bot preview --message "Your name: Jane Lee ..."
  quote-bot run request.txt --headless --interactive=false
  quote-bot serve --port 8080
  quote-bot mcp`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.v)
			if err != nil {
				return err
			}
			c.app, err = newApp(cfg)
			return err
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			c.app.close()
		},
	}
	config.BindFlags(root.PersistentFlags(), c.v)

	root.AddCommand(
		c.parseCmd(),
		c.previewCmd(),
		c.runCmd(),
		c.serveCmd(),
		c.mcpCmd(),
		c.pagesCmd(),
		versionCmd(),
	)
	return root
}

// input turns the --message flag, a file argument or stdin into a request.
func input(cmd *cobra.Command, args []string, message string) (service.ParseRequest, error) {
	switch {
	case message != "":
		return service.ParseRequest{Message: message}, nil
	case len(args) == 1 && args[0] != "-":
		return service.ParseRequest{Path: args[0]}, nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return service.ParseRequest{}, fmt.Errorf("read stdin: %w", err)
	}
	return service.ParseRequest{Message: string(b)}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) parseCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Print the fields extracted from a request as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := input(cmd, args, message)
			if err != nil {
				return err
			}
			svc, err := c.app.service(cmd.Context(), local, false)
			if err != nil {
				return err
			}
			resp := svc.Parse(cmd.Context(), req)
			if !resp.Success {
				return errors.New(resp.Error)
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Request text (instead of a file or stdin)")
	return cmd
}

func (c *cli) previewCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "preview [file|-]",
		Short: "Show the pages a run would visit and the required fields still missing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := input(cmd, args, message)
			if err != nil {
				return err
			}
			svc, err := c.app.service(cmd.Context(), local, false)
			if err != nil {
				return err
			}
			resp := svc.Preview(cmd.Context(), req)
			if !resp.Success {
				return errors.New(resp.Error)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Request text (instead of a file or stdin)")
	return cmd
}

func (c *cli) runCmd() *cobra.Command {
	var (
		message string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Fill in and submit the quote form for a request",
		Long: `Run extracts the request and drives the quote form page by page.

With --interactive (the default) the run pauses once each page is filled
and asks before clicking Next or Submit; a missing required field or an error shown by the form
is reported at a checkpoint instead of ending the run. Ctrl-C cancels.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := input(cmd, args, message)
			if err != nil {
				return err
			}
			svc, err := c.app.service(cmd.Context(), local, true)
			if err != nil {
				return err
			}
			resp := svc.Automate(cmd.Context(), service.AutomateRequest{Message: req.Message, Path: req.Path})

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Status: %s\n%s\n", resp.Status, resp.Message)
				if resp.Report != nil && len(resp.Report.Missing) > 0 {
					fmt.Fprintf(out, "Missing: %s\n", strings.Join(resp.Report.Missing, ", "))
				}
			}
			if !resp.Success {
				return fmt.Errorf("run %s", resp.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Request text (instead of a file or stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full run report as JSON")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the parse, preview and automate endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.app.service(cmd.Context(), remote, true)
			if err != nil {
				return err
			}
			srv := httpapi.New(svc, c.app.logger, httpapi.Options{
				MaxBody:  c.app.cfg.MaxFileSize,
				Headless: true,
			})
			return srv.ListenAndServe(cmd.Context(), c.app.cfg.Address())
		},
	}
}

func (c *cli) mcpCmd() *cobra.Command {
	var transport string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the quote tools to MCP clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.app.service(cmd.Context(), remote, true)
			if err != nil {
				return err
			}
			server, err := mcpserver.NewServer(c.app.cfg, svc, c.app.logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), transport)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", mcpserver.TransportStdio, "MCP transport: stdio or sse (sse listens on --host/--port)")
	return cmd
}

func (c *cli) pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "Print the form page table as YAML (a starting point for --pages-file)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := pages.LoadFile(c.app.cfg.PagesFile)
			if err != nil {
				return err
			}
			return table.WriteYAML(cmd.OutOrStdout())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
