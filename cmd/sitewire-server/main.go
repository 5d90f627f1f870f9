// Command sitewire-server is an example composition root wiring a loaded
// config.SiteConfig, an optional neutral.Bundle, and assemble.Assemble onto
// a running fiber.App.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sitewire/sitewire/assemble"
	"github.com/sitewire/sitewire/cli"
	"github.com/sitewire/sitewire/config"
	storeredis "github.com/sitewire/sitewire/store/redis"
)

func main() {
	configPath := flag.String("config", "sitewire.yaml", "path to the site config file")
	dev := flag.Bool("dev", false, "run in dev mode")
	static := flag.Bool("static", false, "run in static layout mode")
	redisAddr := flag.String("redis-addr", "", "optional Redis address for cross-process stream broadcast")
	flag.Parse()

	printer := cli.NewColorPrinter()

	cfg, err := config.Load(*configPath)
	if err != nil {
		printer.Error("loading config: %v", err)
		os.Exit(1)
	}

	env := config.Prod
	if *dev {
		env = config.Dev
	}
	layout := config.Fullstack
	if *static {
		layout = config.Static
	}

	logger := config.NewStdLogger(log.New(os.Stderr, "", log.LstdFlags))
	globals := config.NewGlobals()

	if env == config.Dev && cfg.Paths.DevContentRoot != "" {
		watcher, err := config.WatchDir(cfg.Paths.DevContentRoot, globals, logger)
		if err != nil {
			printer.Warning("could not watch %s for changes: %v", cfg.Paths.DevContentRoot, err)
		} else {
			defer watcher.Close()
		}
	}

	// bundle is nil here: loading the external API/stream bundle (dynamic
	// plugin, statically linked package, whatever a given deployment picks)
	// is a deployment-specific concern — a real deployment plugs its own
	// neutral.Bundle implementation in at this line.
	app := fiber.New()
	asm, err := assemble.Assemble(app, env, layout, cfg, nil, globals, logger)
	if err != nil {
		printer.Error("assembling routes: %v", err)
		os.Exit(1)
	}

	if *redisAddr != "" && asm.Multiplexer != nil {
		client := goredis.NewClient(&goredis.Options{Addr: *redisAddr})
		pubsub := storeredis.NewPubSub(client)
		if err := asm.Multiplexer.EnableDistribution(pubsub, "sitewire-stream-broadcast"); err != nil {
			printer.Warning("could not enable distributed stream broadcast: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	printer.PrintBanner(addr, string(env), string(layout))

	if err := app.Listen(addr); err != nil {
		printer.Error("server stopped: %v", err)
		os.Exit(1)
	}
}
