// Package cli implements footprintctl, an operator tool over the reference data and token
// issuing used by the API.
package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"example.com/footprint/internal/auth"
	"example.com/footprint/internal/config"
	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/persistence/memory"
	"example.com/footprint/internal/referencedata"
	"example.com/footprint/internal/usecase"
)

type options struct {
	jsonOutput bool
	now        func() time.Time
	loadConfig func() (config.Config, error)
}

// NewRootCmd creates the footprintctl root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{now: time.Now, loadConfig: config.Load})
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "footprintctl",
		Short:         "Inspect footprint reference data and mint development tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of a table")

	root.AddCommand(newFlightCmd(opts))
	root.AddCommand(newAirportsCmd(opts))
	root.AddCommand(newRegionsCmd(opts))
	root.AddCommand(newFactorsCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	return root
}

func newFlightCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "flight <from> <to>",
		Short: "Show distance and haul classification between two airports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			airports, err := referencedata.NewAirportStore()
			if err != nil {
				return err
			}
			res, err := usecase.NewCalculateFlight(airports).Execute(cmd.Context(), usecase.CalculateFlightInput{
				OriginIATA:      args[0],
				DestinationIATA: args[1],
			})
			if err != nil {
				return err
			}
			distance := domain.Round(res.DistanceKm, 1)
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"origin":      res.Origin.IATACode,
					"destination": res.Destination.IATACode,
					"distance_km": distance,
					"flight_type": res.FlightType,
					"is_domestic": res.IsDomestic,
					"haul_type":   res.HaulType,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) -> %s (%s): %.1f km, %s\n",
				res.Origin.IATACode, res.Origin.City, res.Destination.IATACode, res.Destination.City, distance, res.FlightType)
			return err
		},
	}
}

func newAirportsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "airports <query>",
		Short: "Search airports by IATA code, city or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			airports, err := referencedata.NewAirportStore()
			if err != nil {
				return err
			}
			results, err := usecase.NewSearchAirports(airports).Execute(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeTable(cmd.OutOrStdout(), []string{"IATA", "NAME", "CITY", "COUNTRY"}, len(results), func(i int) []string {
				a := results[i]
				return []string{a.IATACode, a.Name, a.City, a.CountryCode}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", usecase.DefaultAirportLimit, "maximum number of results")
	return cmd
}

func newRegionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List regional annual averages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			regions, err := referencedata.NewRegionStore()
			if err != nil {
				return err
			}
			list, err := usecase.NewListRegions(regions).Execute(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return writeTable(cmd.OutOrStdout(), []string{"CODE", "NAME", "ANNUAL KG CO2E"}, len(list), func(i int) []string {
				r := list[i]
				return []string{r.Code, r.Name, fmt.Sprintf("%.0f", r.AverageAnnualCO2eKg)}
			})
		},
	}
}

func newFactorsCmd(opts *options) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "List emission factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			factors, err := memory.NewSeededEmissionFactorRepository()
			if err != nil {
				return err
			}
			list, err := usecase.NewListEmissionFactors(factors).Execute(cmd.Context(), category)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return writeTable(cmd.OutOrStdout(), []string{"CATEGORY", "TYPE", "FACTOR", "UNIT"}, len(list), func(i int) []string {
				f := list[i]
				return []string{f.Category, f.Type, fmt.Sprintf("%g", f.Factor), f.Unit}
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list factors in this category")
	return cmd
}

func newTokenCmd(opts *options) *cobra.Command {
	var subject, email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if subject == "" {
				subject = uuid.NewString()
			}
			token, err := auth.MintToken(auth.Config{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.JWTIssuer,
				Audience: cfg.Auth.JWTAudience,
			}, subject, email, ttl, opts.now())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"sub": subject, "token": token})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id to put in the subject claim (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, header []string, rows int, row func(int) []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i := 0; i < rows; i++ {
		fmt.Fprintln(tw, strings.Join(row(i), "\t"))
	}
	return tw.Flush()
}
