package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/pixel"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/sink"
)

// maxLineBytes matches the HTTP body limit.
const maxLineBytes = 1 << 20

// summary counts what happened to each input line.
type summary struct {
	Emitted int
	Dropped int
	Ignored int
	Invalid int
}

func (s summary) String() string {
	return fmt.Sprintf("emitted=%d dropped=%d ignored=%d invalid=%d", s.Emitted, s.Dropped, s.Ignored, s.Invalid)
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "replay",
		Short: "Map recorded pixel events to data layer records",
		Long: `replay reads pixel event envelopes as JSON lines and writes the mapped
data layer records to stdout, one JSON object per line.

Invalid lines and dropped events are reported on stderr.`,
		Example: `  replay --file events.jsonl
  cat events.jsonl | replay --strict`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			strict, _ := cmd.Flags().GetBool("strict")
			verbose, _ := cmd.Flags().GetBool("verbose")

			in := stdin
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open %s: %w", file, err)
				}
				defer f.Close()
				in = f
			}

			level := zapcore.WarnLevel
			if verbose {
				level = zapcore.DebugLevel
			}
			log := zap.New(zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(stderr),
				level,
			))

			sum, err := replay(cmd.Context(), in, sink.NewWriter(stdout), log)
			if err != nil {
				return err
			}
			fmt.Fprintln(stderr, sum)

			if strict && (sum.Dropped > 0 || sum.Invalid > 0) {
				return fmt.Errorf("%d dropped, %d invalid", sum.Dropped, sum.Invalid)
			}
			return nil
		},
	}

	root.Flags().StringP("file", "f", "", "JSON lines input (default: stdin)")
	root.Flags().Bool("strict", false, "exit non-zero when any event is dropped or invalid")
	root.Flags().BoolP("verbose", "v", false, "log every dispatched event")
	return root
}

// replay dispatches every envelope in r through a bus that writes to out.
func replay(ctx context.Context, r io.Reader, out sink.Sink, log *zap.Logger) (summary, error) {
	bus := pixel.NewBus(log, nil)
	pixel.Register(bus, out)

	var sum summary
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		env, err := models.ParseEnvelope(raw)
		if err != nil {
			sum.Invalid++
			log.Warn("invalid_envelope", zap.Int("line", line), zap.Error(err))
			continue
		}
		env = models.WithID(env, "")

		outcome := bus.Dispatch(ctx, env)
		log.Debug("dispatched",
			zap.Int("line", line),
			zap.String("event", env.Name),
			zap.String("outcome", string(outcome)),
		)
		switch outcome {
		case pixel.OutcomeEmitted:
			sum.Emitted++
		case pixel.OutcomeDropped:
			sum.Dropped++
		case pixel.OutcomeIgnored:
			sum.Ignored++
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("read line %d: %w", line+1, err)
	}
	return sum, nil
}
