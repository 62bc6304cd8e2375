// vkeyboard - keyboard injection service
// Posts allow-listed key presses to one target process on request
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"vkeyboard/internal/api"
	"vkeyboard/internal/autostart"
	"vkeyboard/internal/config"
	"vkeyboard/internal/dispatch"
	"vkeyboard/internal/input"
	"vkeyboard/internal/keys"
	"vkeyboard/internal/network"
	"vkeyboard/internal/osutils"
	"vkeyboard/internal/tray"
)

var (
	version = "0.1.0"

	configPath = flag.StringP("config", "c", "", "Path to the JSON or YAML configuration file")
	listenAddr = flag.String("listen", "", "Override the configured listen address")
	showTray   = flag.Bool("tray", false, "Show a system tray icon while serving")
	checkOnly  = flag.Bool("check", false, "Validate the configuration and exit")
	listKeys   = flag.Bool("list-keys", false, "List supported key and modifier names")

	remoteAddr = flag.String("remote", "", "Send a press to a running server at HOST:PORT")
	sendKey    = flag.String("send", "", "Key to send with --remote")
	modifier   = flag.String("modifier", "", "Modifier to send with --remote")
	action     = flag.String("action", "", "Action to send with --remote (up, down, cycle)")
	token      = flag.String("token", "", "API token for --remote")

	installAgent   = flag.Bool("install-agent", false, "Start the service at login with --config")
	uninstallAgent = flag.Bool("uninstall-agent", false, "Remove the login item")
	showVer        = flag.BoolP("version", "v", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vkeyboard version %s\n", version)
		return
	}

	// Handle --list-keys flag
	if *listKeys {
		printKeys()
		return
	}

	// Handle --remote flag
	if *remoteAddr != "" {
		if err := sendRemote(); err != nil {
			log.Fatalf("Remote press failed: %v", err)
		}
		fmt.Println("ok")
		return
	}

	if *uninstallAgent {
		if err := autostart.Disable(); err != nil {
			log.Fatalf("Failed to remove login item: %v", err)
		}
		fmt.Println("Login item removed")
		return
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "vkeyboard: --config is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}

	if *checkOnly {
		fmt.Printf("%s: ok (pid %d, %d keys, delay %v)\n", cfg.Path(), cfg.PID, len(cfg.Policy().Keys()), cfg.Delay())
		return
	}

	if *installAgent {
		if err := autostart.Enable(cfg.Path(), *listenAddr); err != nil {
			log.Fatalf("Failed to install login item: %v", err)
		}
		fmt.Println("Login item installed")
		return
	}

	runService(cfg)
}

func printKeys() {
	fmt.Println("Keys:")
	for _, name := range keys.Names() {
		code, _ := keys.ResolveKeyCode(name)
		fmt.Printf("  %-14q 0x%02X\n", name, uint16(code))
	}
	fmt.Println("Modifiers:")
	for _, mod := range keys.Modifiers() {
		fmt.Printf("  %-14s 0x%06X\n", mod, uint64(mod))
	}
}

func sendRemote() error {
	if *sendKey == "" {
		return errors.New("--send is required with --remote")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := network.NewClient(*remoteAddr, *token)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	return client.Press(ctx, *sendKey, *modifier, *action)
}

func runService(cfg *config.Config) {
	log.Println("vkeyboard service starting...")

	if !osutils.ProcessExists(cfg.PID) {
		log.Printf("Warning: no process with pid %d; events will not be delivered", cfg.PID)
	}

	injector := input.NewInjector(cfg.PID, cfg.Delay())
	dispatcher := dispatch.New(input.NewKeyboard(injector), cfg.Policy())

	var t *tray.Tray
	if *showTray {
		t = tray.New("VKB", "vkeyboard - key injection")
		t.AddInfoItem(fmt.Sprintf("Target pid: %d", cfg.PID))
		t.AddInfoItem(fmt.Sprintf("Listening on %s", cfg.Server.Listen))
		lastKey := t.AddInfoItem("Last key: none")
		t.AddSeparator()
		t.AddMenuItem("Quit", func() {
			t.Stop()
		})

		dispatcher.OnPress = func(ev dispatch.Event) {
			title := fmt.Sprintf("Last key: %s", ev.Key)
			if ev.Modifier != keys.NoModifier {
				title = fmt.Sprintf("Last key: %s+%s", ev.Modifier, ev.Key)
			}
			t.SetItemTitle(lastKey, title)
		}
	}

	apiServer := api.NewServer(cfg, dispatcher)
	apiServer.TargetAlive = osutils.ProcessExists

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if !*showTray {
		log.Println("vkeyboard running. Press Ctrl+C to stop.")
		select {
		case <-sigCh:
			log.Println("Shutting down...")
			shutdown()
		case err := <-errCh:
			if err != nil {
				log.Fatalf("API server error: %v", err)
			}
		}
		return
	}

	go func() {
		select {
		case <-sigCh:
			log.Println("Shutting down...")
		case err := <-errCh:
			if err != nil {
				log.Printf("API server error: %v", err)
			}
		}
		t.Stop()
	}()

	log.Println("vkeyboard running in the tray.")
	t.Run()
	shutdown()
}
