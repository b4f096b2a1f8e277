package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobsentry-engine/internal/app"
	"jobsentry-engine/internal/config"
	email_scrape "jobsentry-engine/internal/scrape/email"
	"jobsentry-engine/internal/secrets"
)

var (
	mailEmail       string
	mailDays        int
	importNoAnalyze bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List job-application emails in the mailbox without importing",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import job applications from the mailbox",
	Long: `Scan the mailbox for job-application emails and create a tracked job for
each new listing URL. The app password is read from IMAP_APP_PASSWORD or,
failing that, from the OS keychain entry for the mailbox.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, importCmd} {
		c.Flags().StringVar(&mailEmail, "email", "", "Mailbox address (defaults to email.username)")
		c.Flags().IntVar(&mailDays, "days", 0, "Days back to scan (defaults to email.days_back)")
		rootCmd.AddCommand(c)
	}
	importCmd.Flags().BoolVar(&importNoAnalyze, "no-analyze", false, "Skip listing analysis for imported jobs")
}

// mailboxSetup loads config and resolves the mailbox credentials and
// scan window from flags, environment and keychain.
func mailboxSetup() (config.Config, email_scrape.Credentials, int, error) {
	_, cfg, _, err := loadConfig()
	if err != nil {
		return cfg, email_scrape.Credentials{}, 0, err
	}
	if mailEmail != "" {
		cfg.Email.Username = strings.TrimSpace(mailEmail)
	}
	if cfg.Email.Username == "" {
		return cfg, email_scrape.Credentials{}, 0, app.ErrNoMailbox
	}
	days := mailDays
	if days <= 0 {
		days = cfg.Email.DaysBack
	}

	pw := os.Getenv("IMAP_APP_PASSWORD")
	if pw == "" {
		pw, err = secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
		if err != nil {
			return cfg, email_scrape.Credentials{}, 0, err
		}
	}
	return cfg, email_scrape.Credentials{Username: cfg.Email.Username, Password: pw}, days, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, creds, days, err := mailboxSetup()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	apps, err := a.Scanner.Scan(cmd.Context(), creds, days, cfg.Email.ScanLimit)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, apps)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, creds, days, err := mailboxSetup()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Importer.Import(cmd.Context(), creds, days, cfg.Email.AnalyzeOnImport && !importNoAnalyze)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, res)
}
