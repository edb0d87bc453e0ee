// Command wlogdemo writes a burst of records through a wlogging facade and
// prints the delivery statistics. It is a quick way to look at the console
// layout and the rotating JSON file for a given configuration.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/wobyy/wlogging"
	"github.com/wobyy/wlogging/handler"
)

func main() {
	root := flag.String("root", "", "Project root (default: $"+wlogging.EnvRootDir+")")
	configPath := flag.String("config", "", "TOML configuration file")
	level := flag.String("level", "", "Console level (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	n := flag.Int("n", 100, "Records written per goroutine")
	workers := flag.Int("workers", 4, "Concurrent writers")
	flag.Parse()

	if err := run(*root, *configPath, *level, *n, *workers); err != nil {
		fmt.Fprintln(os.Stderr, "wlogdemo:", err)
		os.Exit(1)
	}
}

func run(root, configPath, level string, n, workers int) (err error) {
	defer func() {
		if serr := wlogging.Shutdown(); err == nil {
			err = serr
		}
	}()

	cfg := wlogging.DefaultConfig()
	if configPath != "" {
		if cfg, err = wlogging.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if root != "" {
		cfg.RootDirectory = root
	}

	w, err := wlogging.New(cfg)
	if err != nil {
		return err
	}
	lg, err := w.GetLogger(level)
	if err != nil {
		return err
	}

	lg.Announce("writing %d records from %d goroutines to %s", n*workers, workers, w.LogFile())

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < n; j++ {
				switch j % 4 {
				case 0:
					lg.Debug("worker %d step %d", id, j)
				case 1:
					lg.Info("worker %d step %d", id, j)
				case 2:
					lg.Warning("worker %d step %d", id, j)
				default:
					lg.Error("worker %d step %d", id, j)
				}
			}
		}(i)
	}
	wg.Wait()

	if err := w.Stop(); err != nil {
		return err
	}

	q, _ := w.Handler(wlogging.HandlerQueue)
	snap := q.(*handler.QueueHandler).Stats()
	lg.Announce("processed=%d dropped=%d blocked=%d", snap.ProcessedTotal, snap.TotalDropped(), snap.BlockedTotal)
	return nil
}
