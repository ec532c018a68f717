package console

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-crawler/internal/config"
	"locator-crawler/internal/store"
	"locator-crawler/internal/usecase"
	"locator-crawler/pkg/logg"
)

type Interface struct {
	config   *config.Config
	logger   *zap.Logger
	usecase  *usecase.Service
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopping bool
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)

	return &Interface{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:  params.Usecase,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  sigChan,
		stopping: false,
	}
}

func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-i.sigChan
		fmt.Println("\n\nInterrupt received, stopping...")
		i.stopping = true
		i.Stop()
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if i.stopping {
			break
		}

		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if err.Error() == "exit" {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Printf("Error: %v\n", err)
		}
	}

	return nil
}

func (i *Interface) Stop() error {
	if i.stopping {
		return nil
	}

	i.stopping = true
	i.logger.Info("Stopping console interface...")

	i.cancel()
	i.usecase.Crawler.Stop()

	fmt.Println("Goodbye!")
	os.Exit(0)

	return nil
}

func (i *Interface) handleCommand(input string) error {
	fields := strings.Fields(input)
	command := strings.ToLower(fields[0])

	switch command {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Println("Shutting down...")

		return fmt.Errorf("exit")
	case "crawl", "c":
		return i.runCrawl()
	case "monitor", "m":
		return i.runMonitor()
	case "replay", "r":
		if len(fields) < 2 {
			fmt.Println("Usage: replay <fallback-file.json>")

			return nil
		}

		return i.runReplay(fields[1])
	default:
		fmt.Printf("Unknown command: %s (try 'help')\n", command)

		return nil
	}
}

func (i *Interface) runCrawl() error {
	fmt.Printf("\nCrawling %s\n", i.config.CrawlerConfig.TargetURL)
	fmt.Println("───────────────────────────────────────────────────")

	result, err := i.usecase.Crawler.Crawl(i.ctx)
	if err != nil {
		fmt.Printf("\nCrawl failed: %v\n", err)

		return nil
	}

	fmt.Println("\n───────────────────────────────────────────────────")
	fmt.Printf("Crawl complete (session %s)\n\n", result.SessionID)
	fmt.Printf("  Screens discovered:  %d\n", result.ScreensDiscovered)
	fmt.Printf("  Elements extracted:  %d\n", result.ElementsExtracted)
	fmt.Printf("  Elements clicked:    %d\n", result.ElementsClicked)
	fmt.Printf("  Duration:            %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Second))

	if result.FallbackFile != "" {
		fmt.Printf("\n  API was unreachable for part of the run.\n")
		fmt.Printf("  Buffered records written to: %s\n", result.FallbackFile)
		fmt.Printf("  Import later with: replay %s\n", result.FallbackFile)
	}

	return nil
}

func (i *Interface) runMonitor() error {
	fmt.Println("\nMonitoring mode: interact with the application manually.")
	fmt.Println("Press Ctrl+C to stop and print the summary.")
	fmt.Println("───────────────────────────────────────────────────")

	result, err := i.usecase.Crawler.Monitor(i.ctx)
	if err != nil {
		fmt.Printf("\nMonitoring failed: %v\n", err)

		return nil
	}

	fmt.Println("\n───────────────────────────────────────────────────")
	fmt.Printf("Monitoring stopped (session %s)\n\n", result.SessionID)
	fmt.Printf("  Screens discovered:  %d\n", result.ScreensDiscovered)
	fmt.Printf("  Elements extracted:  %d\n", result.ElementsExtracted)

	return nil
}

func (i *Interface) runReplay(path string) error {
	fmt.Printf("\nReplaying %s into %s\n", path, i.config.APIConfig.BaseURL)

	screens, elements, err := store.Replay(i.ctx, i.usecase.Store, i.logger, path)
	if err != nil {
		fmt.Printf("Replay failed: %v\n", err)

		return nil
	}

	fmt.Printf("Imported %d screens and %d elements.\n", screens, elements)

	return nil
}

func (i *Interface) printBanner() {
	banner := `
╔═══════════════════════════════════════════════════╗
║                                                   ║
║           UI Locator Crawler                      ║
║                                                   ║
║  Autonomous exploration and locator extraction    ║
║                                                   ║
╚═══════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  crawl, c          - Explore the target app and extract locators
  monitor, m        - Follow your manual interactions and extract as you go
  replay, r <file>  - Import a fallback JSON file into the locator API
  help, h           - Show this help message
  exit, quit, q     - Exit the application
`
	fmt.Println(help)
}
