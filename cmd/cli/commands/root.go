package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carematch/carematch/internal/constants"
	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/pkg/api/v1/client"
	"github.com/carematch/carematch/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagAccessToken   = "access-token"
	flagJobID         = "job"
	flagFreelancerID  = "freelancer"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
	// accessToken is the bearer token sent with every API call
	accessToken string
	// newClient builds the API client once the flags are resolved
	newClient = client.NewClient
)

// initClient initializes the API client
func initClient() error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress
	opts.AccessToken = accessToken

	var err error
	apiClient, err = newClient(opts)
	return err
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "carematch",
		Short: "CareMatch CLI - A command line interface for the CareMatch API",
		Long: `CareMatch CLI follows confirmation windows, selects or declines candidates
and watches the badge counters through the CareMatch API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flag > Env Var > Default
			if !cmd.Flags().Changed(flagServerAddress) {
				if envAddr := os.Getenv(constants.EnvServerAddress); envAddr != "" {
					serverAddress = envAddr
				}
			}
			if !cmd.Flags().Changed(flagAccessToken) {
				if envToken := os.Getenv(constants.EnvAccessToken); envToken != "" {
					accessToken = envToken
				}
			}
			logger.Debugf("CareMatch server address: %s", serverAddress)

			if serverAddress == "" {
				return fmt.Errorf("server address cannot be empty")
			}
			return initClient()
		},
	}

	root.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL,
		"Address of the CareMatch API server (env: "+constants.EnvServerAddress+")")
	root.PersistentFlags().StringVarP(&accessToken, flagAccessToken, "t", "",
		"Bearer token of the current session (env: "+constants.EnvAccessToken+")")

	root.AddCommand(GetJobsCmd())
	root.AddCommand(GetWindowCmd())
	root.AddCommand(GetCountersCmd())
	return root
}

// Execute runs the CLI with ctx, cancelled on interrupt by the caller
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// printJSON pretty prints v to the command's output
func printJSON(cmd *cobra.Command, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(prettyJSON))
	return err
}

// requireFlag returns a string flag that must not be empty
func requireFlag(cmd *cobra.Command, name string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return "", fmt.Errorf("required flag(s) \"%s\" not set", name)
	}
	return value, nil
}
