package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AlexIndustrial/latebot/internal/security"
	"github.com/AlexIndustrial/latebot/internal/service"
	apperrors "github.com/AlexIndustrial/latebot/pkg/errors"
	"github.com/AlexIndustrial/latebot/pkg/logger"
)

// operatorID is the synthetic user identity console commands are rate
// limited under. Negative so it can never collide with a Telegram user ID.
const operatorID int64 = -1

// Console is a line-oriented operator REPL over the vote store. Unlike the
// webhook path it may stall: denied commands wait out the window instead of
// being dropped.
type Console struct {
	votingService *service.VotingService
	limiter       *security.RateLimiter
	in            io.Reader
	out           io.Writer
	logger        *logger.Logger
}

func New(votingService *service.VotingService, limiter *security.RateLimiter, in io.Reader, out io.Writer, log *logger.Logger) *Console {
	return &Console{
		votingService: votingService,
		limiter:       limiter,
		in:            in,
		out:           out,
		logger:        log,
	}
}

// Run reads commands until EOF, an exit command, or context cancellation.
// Meant to be run in its own goroutine alongside the HTTP server.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	c.printf("latebot console; type help for commands\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		c.printf("> ")
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !c.dispatch(ctx, strings.TrimSpace(line)) {
				return
			}
		}
	}
}

// dispatch executes one command; false means the REPL should stop
func (c *Console) dispatch(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "exit", "quit":
		return false
	case "help":
		c.printf("commands:\n  stats [YYYY-MM-DD]  show a day's tally (default today)\n  latedays            count days with at least one late vote\n  exit                quit the console\n")
		return true
	}

	// Console commands share the limiter with the bot but wait instead of
	// dropping; a blacklisted operator identity would be a config error
	if !c.limiter.AdmitBlocking(ctx, operatorID) {
		return false
	}

	switch command {
	case "stats":
		c.runStats(ctx, args)
	case "latedays":
		c.runLateDays(ctx)
	default:
		c.printf("unknown command %q; type help\n", command)
	}
	return true
}

func (c *Console) runStats(ctx context.Context, args []string) {
	if len(args) > 0 {
		day, err := time.ParseInLocation(time.DateOnly, args[0], time.UTC)
		if err != nil {
			c.printf("bad date %q, expected YYYY-MM-DD\n", args[0])
			return
		}
		agg, err := c.votingService.GetDayStats(ctx, day)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				c.printf("no data for %s\n", args[0])
				return
			}
			c.printf("error: %v\n", err)
			return
		}
		c.printDay(agg.Date.Format(time.DateOnly), agg.LateCount(), agg.NotLateCount())
		return
	}

	agg, err := c.votingService.GetOrCreateToday(ctx)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}
	c.printDay(agg.Date.Format(time.DateOnly), agg.LateCount(), agg.NotLateCount())
}

func (c *Console) runLateDays(ctx context.Context) {
	count, err := c.votingService.CountLateDays(ctx)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}
	c.printf("days with a late vote: %d\n", count)
}

func (c *Console) printDay(date string, late, notLate int) {
	c.printf("%s  late=%d  not_late=%d\n", date, late, notLate)
}

func (c *Console) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.logger.WithError(err).Warn("Console write failed")
	}
}
