package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/app"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/scrape/util"
)

var analyzeManual domain.ManualFields

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Analyze one job listing and print the verdict as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeManual.Title, "title", "", "Job title, if known")
	f.StringVar(&analyzeManual.Company, "company", "", "Company name, if known")
	f.StringVar(&analyzeManual.Description, "description", "", "Pasted job description")
	f.StringVar(&analyzeManual.Salary, "salary", "", "Advertised salary")
	f.StringVar(&analyzeManual.Location, "location", "", "Job location")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	url, err := util.ValidateListingURL(args[0])
	if err != nil {
		return err
	}
	_, cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Pipeline.Analyze(cmd.Context(), url, analyzeManual)
	if errors.Is(err, analyze.ErrAnalysisFailed) {
		_ = printJSON(os.Stdout, domain.UnknownAnalysis(a.Pipeline.Classify(url), time.Now().UTC()))
		return err
	}
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, res)
}
