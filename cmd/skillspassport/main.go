package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/skillspassport/internal/client"
	creddto "github.com/dropDatabas3/skillspassport/internal/http/dto/credentials"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/sessiongate"
	"github.com/dropDatabas3/skillspassport/internal/util"
	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

type cli struct {
	BaseURL     string
	OutFormat   string // "json" | "text"
	SessionPath string
	Timeout     time.Duration

	api  *client.Client
	gate *sessiongate.Gate
}

func (c *cli) init() error {
	c.api = client.New(c.BaseURL)
	c.api.HTTP.Timeout = c.Timeout
	path := c.SessionPath
	if path == "" {
		p, err := sessiongate.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	g, err := sessiongate.Open(sessiongate.NewFileStore(path))
	if err != nil {
		return err
	}
	c.gate = g
	return nil
}

// authed exige sesión local antes de llamar al server.
func (c *cli) authed() (*client.Client, error) {
	s, err := c.gate.Require()
	if err != nil {
		return nil, err
	}
	return c.api.WithToken(s.Token), nil
}

func (c *cli) print(v any, text func()) {
	if c.OutFormat == "json" || text == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	text()
}

func printCredential(status ledger.Status, cr *ledger.Credential) {
	if cr == nil {
		fmt.Printf("status=%s\n", status)
		return
	}
	fmt.Printf("%s  status=%s\n", cr.ID, status)
	fmt.Printf("  %s: %s -> %s (%s)\n", cr.InstitutionName, cr.CourseName, cr.StudentName, util.MaskAddress(cr.StudentWallet))
	exp := cr.ExpiryDate
	if exp == "" {
		exp = "-"
	}
	fmt.Printf("  issued=%s expires=%s hash=%s\n", cr.IssueDate, exp, cr.Hash)
}

// describe traduce errores a los tres casos que el usuario tiene que distinguir.
func describe(err error) string {
	switch {
	case errors.Is(err, sessiongate.ErrNotLoggedIn):
		return "not logged in: run `skillspassport login --key <hex>` (" + err.Error() + ")"
	case errors.Is(err, client.ErrUnreachable):
		return "backend unreachable: " + err.Error()
	case errors.Is(err, client.ErrNotAuthorized):
		return "not authorized: " + err.Error()
	}
	return err.Error()
}

func main() {
	c := &cli{
		BaseURL:   envOr("SKILLSPASSPORT_URL", "http://localhost:4000"),
		OutFormat: envOr("SKILLSPASSPORT_OUT", "text"),
		Timeout:   30 * time.Second,
	}

	root := &cobra.Command{
		Use:           "skillspassport",
		Short:         "CLI de SkillsPassport: login de issuer, mint/revoke y verificación de credenciales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.BaseURL, "url", c.BaseURL, "URL base del backend (env SKILLSPASSPORT_URL)")
	root.PersistentFlags().StringVar(&c.OutFormat, "out", c.OutFormat, "Formato de salida: json|text")
	root.PersistentFlags().StringVar(&c.SessionPath, "session", "", "Archivo de sesión (default ~/.skillspassport/session.json)")
	root.PersistentFlags().DurationVar(&c.Timeout, "timeout", c.Timeout, "Timeout de cada request")

	root.AddCommand(
		loginCmd(c), logoutCmd(c), whoamiCmd(c),
		mintCmd(c), revokeCmd(c),
		verifyCmd(c), walletCmd(c), ledgerCmd(c),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func loginCmd(c *cli) *cobra.Command {
	var keyHex string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Firma un nonce con la clave del issuer y guarda la sesión",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyHex == "" {
				keyHex = os.Getenv("SKILLSPASSPORT_KEY")
			}
			if keyHex == "" {
				return fmt.Errorf("--key es requerido (o env SKILLSPASSPORT_KEY)")
			}
			key, err := wallet.ParsePrivateKey(keyHex)
			if err != nil {
				return err
			}
			s, err := c.api.LoginWithKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := c.gate.Login(s); err != nil {
				return err
			}
			c.print(s, func() {
				fmt.Printf("logged in as %s (expires %s)\n", s.Address, s.ExpiresAt.Local().Format(time.RFC3339))
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Clave privada hex del issuer")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Borra la sesión local",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.gate.Logout(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Re-verifica la sesión guardada contra el backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.gate.Restore(cmd.Context(), c.api)
			if err != nil {
				return err
			}
			c.print(map[string]any{"address": s.Address, "expiresAt": s.ExpiresAt}, func() {
				fmt.Printf("%s (token %s, expires %s)\n", s.Address, util.MaskToken(s.Token), s.ExpiresAt.Local().Format(time.RFC3339))
			})
			return nil
		},
	}
}

func mintCmd(c *cli) *cobra.Command {
	var in creddto.MintRequest
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Emite una credencial (requiere login)",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.authed()
			if err != nil {
				return err
			}
			resp, err := api.Mint(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.print(resp, func() { printCredential(resp.Status, resp.Credential) })
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.InstitutionName, "institution", "", "Institución")
	f.StringVar(&in.StudentName, "student", "", "Nombre del estudiante")
	f.StringVar(&in.StudentWallet, "wallet", "", "Wallet del estudiante")
	f.StringVar(&in.CourseName, "course", "", "Curso")
	f.StringVar(&in.IssueDate, "issue-date", time.Now().Format("2006-01-02"), "Fecha de emisión YYYY-MM-DD")
	f.StringVar(&in.ExpiryDate, "expiry-date", "", "Fecha de vencimiento YYYY-MM-DD (opcional)")
	for _, name := range []string{"institution", "student", "wallet", "course"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func revokeCmd(c *cli) *cobra.Command {
	var (
		index  int
		reason string
	)
	cmd := &cobra.Command{
		Use:   "revoke [id]",
		Short: "Revoca una credencial por id o por posición (--index)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byIndex := cmd.Flags().Changed("index")
			if byIndex == (len(args) == 1) {
				return fmt.Errorf("indicar un id o --index, no ambos")
			}
			api, err := c.authed()
			if err != nil {
				return err
			}
			var resp creddto.RevokeResponse
			if byIndex {
				resp, err = api.RevokeAt(cmd.Context(), index, reason)
			} else {
				resp, err = api.Revoke(cmd.Context(), strings.TrimSpace(args[0]), reason)
			}
			if err != nil {
				return err
			}
			c.print(resp, func() { printCredential(resp.Status, &resp.Credential) })
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "Posición de la credencial en el ledger")
	cmd.Flags().StringVar(&reason, "reason", "", "Motivo (opcional)")
	return cmd
}

func verifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Consulta el estado de una credencial (no requiere login)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.api.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			c.print(resp, func() { printCredential(resp.Status, resp.Credential) })
			return nil
		},
	}
}

func walletCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "wallet <address>",
		Short: "Lista las credenciales de una wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.api.ListByWallet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.print(resp, func() {
				if len(resp.Credentials) == 0 {
					fmt.Printf("%s: sin credenciales\n", resp.Wallet)
					return
				}
				for _, cr := range resp.Credentials {
					printCredential(cr.Status, cr.Credential)
				}
			})
			return nil
		},
	}
}

func ledgerCmd(c *cli) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Muestra la cadena completa o su verificación (--verify)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if verify {
				rep, err := c.api.Verify(ctx)
				if err != nil {
					return err
				}
				c.print(rep, func() {
					fmt.Printf("ok=%t entries=%d credentials=%d revocations=%d head=%s\n",
						rep.OK, rep.Entries, rep.Credentials, rep.Revocations, rep.Head)
					for _, is := range rep.Issues {
						fmt.Printf("  #%d %s: %s %s\n", is.Index, is.EntryID, is.Reason, is.Detail)
					}
				})
				if !rep.OK {
					return fmt.Errorf("ledger integrity check failed")
				}
				return nil
			}
			led, err := c.api.Ledger(ctx)
			if err != nil {
				return err
			}
			c.print(led, func() {
				fmt.Printf("head=%s hash=%s entries=%d\n", led.Head, led.HashAlg, len(led.Entries))
				for i, e := range led.Entries {
					fmt.Printf("  %3d %-10s %s %s\n", i, e.Type, e.ID(), e.Hash())
				}
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Recalcular hashes y enlaces en el backend")
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
