package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"TimeRing/audio"
	"TimeRing/ui"

	"fyne.io/fyne/v2/app"
)

const appID = "com.lusansapkota.timering"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runGUI opens the main window and blocks until it is closed.
func runGUI(dir, setSound string, out io.Writer) error {
	if setSound != "" && !audio.FileExists(setSound) {
		return fmt.Errorf("sound file not found: %s", setSound)
	}

	fyneApp := app.NewWithID(appID)
	fyneApp.Settings().SetTheme(ui.NewCustomTheme())

	a := NewAppManager(dir, fyneApp)
	defer a.Shutdown()

	if setSound != "" {
		if err := a.SetDefaultSound(setSound); err != nil {
			return err
		}
		fmt.Fprintf(out, "Default sound set to: %s\n", setSound)
	}

	w := ui.CreateMainWindow(a, fyneApp)
	ctx, cancel := context.WithCancel(context.Background())
	w.Window().SetOnClosed(func() {
		cancel()
		a.Shutdown()
	})
	go w.Watch(ctx)

	log.Printf("Using config dir %s", dir)
	w.Window().ShowAndRun()
	return nil
}
