package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"faultline/internal/application/service"
	"faultline/internal/domain/entity"
	"faultline/internal/domain/valueobject"
	"faultline/internal/port/inbound"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// processOutput is the one-shot command's rendering of a pipeline run.
type processOutput struct {
	Result         inbound.HandleResult  `json:"result"             yaml:"result"`
	Classification processClassification `json:"classification"     yaml:"classification"`
	Response       *entity.ErrorResponse `json:"response,omitempty" yaml:"response,omitempty"`
}

type processClassification struct {
	Category   string  `json:"category"   yaml:"category"`
	Level      string  `json:"level"      yaml:"level"`
	Code       string  `json:"code"       yaml:"code"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// newProcessCmd creates the one-shot fault processing command.
func newProcessCmd() *cobra.Command {
	var (
		message    string
		faultFile  string
		source     string
		tenantID   string
		requestID  string
		outputMode string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one fault through the pipeline",
		Long: `Run a single fault through the classification and handling pipeline and
print the outcome. The fault is either a plain message (--message) or a JSON
document read from a file (--fault-file). No bus publish is attempted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fault, err := loadFault(message, faultFile)
			if err != nil {
				return err
			}
			return runProcess(cmd, fault, source, tenantID, requestID, outputMode)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Fault message to process")
	cmd.Flags().StringVarP(&faultFile, "fault-file", "f", "", "Path to a JSON fault document")
	cmd.Flags().StringVar(&source, "source", valueobject.SourceCLI, "Fault source (WEB, API, CLI, SYSTEM)")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant identifier for the exception context")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request identifier for the exception context")
	cmd.Flags().StringVarP(&outputMode, "output", "o", "json", "Output format (json, yaml)")

	return cmd
}

func loadFault(message, faultFile string) (interface{}, error) {
	if message != "" && faultFile != "" {
		return nil, errors.New("only one of --message and --fault-file may be set")
	}
	if message != "" {
		return message, nil
	}
	if faultFile == "" {
		return nil, errors.New("one of --message or --fault-file is required")
	}

	data, err := os.ReadFile(faultFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read fault file: %w", err)
	}

	var fault map[string]interface{}
	if err := json.Unmarshal(data, &fault); err != nil {
		return nil, fmt.Errorf("failed to parse fault file: %w", err)
	}
	return fault, nil
}

func runProcess(cmd *cobra.Command, fault interface{}, source, tenantID, requestID, outputMode string) error {
	sourceTag, err := valueobject.NewSourceTag(source)
	if err != nil {
		return err
	}

	exceptionContext := valueobject.NewExceptionContext(valueobject.ExceptionContextParams{
		TenantID:  tenantID,
		RequestID: requestID,
		Source:    sourceTag,
	})

	result, exception, err := executeProcessPipeline(cmd.Context(), fault, exceptionContext)
	if err != nil {
		return err
	}

	output := processOutput{Result: result}
	if exception != nil {
		response := exception.RenderErrorResponse(requestID)
		output.Classification = processClassification{
			Category:   exception.Category().String(),
			Level:      exception.Level().String(),
			Code:       exception.Code(),
			Confidence: exception.Classification().Confidence(),
		}
		output.Response = &response
	}

	return writeOutput(cmd, output, outputMode)
}

// executeProcessPipeline runs one fault through a fresh pipeline and returns
// the exact exception the pipeline processed, captured via a post-processing
// handler so the rendered classification matches the result's exception id.
func executeProcessPipeline(
	ctx context.Context,
	fault interface{},
	exceptionContext *valueobject.ExceptionContext,
) (inbound.HandleResult, *entity.UnifiedException, error) {
	manager := service.NewFaultManager(
		service.FaultManagerConfig{},
		service.NewFaultTransformer(service.NewFaultClassifier()),
		service.NewStrategyDispatcher(),
		nil, // one-shot runs never publish
		nil,
	)

	var processed *entity.UnifiedException
	if err := manager.RegisterHandler("render-capture", func(
		_ context.Context, exception *entity.UnifiedException, _ []entity.ExecutionResult,
	) error {
		processed = exception
		return nil
	}); err != nil {
		return inbound.HandleResult{}, nil, err
	}

	result := manager.Handle(ctx, fault, exceptionContext)
	return result, processed, nil
}

func writeOutput(cmd *cobra.Command, output processOutput, outputMode string) error {
	switch outputMode {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case "yaml":
		data, err := yaml.Marshal(output)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", outputMode)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newProcessCmd())
}
