// Package dockbar provides the public API for embedding the dockbar-go
// status bar. It docks a bar along the top or bottom edge of an X11 output,
// reserves its screen space and keeps it painted as widgets update.
//
// # Basic Usage
//
//	b, err := dockbar.New("/path/to/bar.lua", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := b.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Sources
//
//   - Disk file: Use [New] to load from a filesystem path
//   - Embedded FS: Use [NewFromFS] to load from an [io/fs.FS]
//   - io.Reader: Use [NewFromReader] with [FormatLua] or [FormatYAML]
//
// # Lifecycle Management
//
// [Dockbar.Start] and [Dockbar.Stop] control the bar directly; [Dockbar.Run]
// wraps both for callers that want to block. [Dockbar.Restart] rebuilds the
// bar from its configuration source and [Dockbar.ReloadConfig] does the same
// only when the new configuration is valid. All methods are safe to call
// from any goroutine.
//
// # Error Handling
//
// A failing widget never stops the bar: its slot keeps its last content and
// the failure is reported as a [CategorizedError] of category widget.
// Losing the display is fatal and ends [Dockbar.Run] with an error of
// category window. Reported errors reach the [ErrorHandler], the
// [ErrorTracker] and the metrics.
//
// # Preview and Headless Modes
//
// Options.Preview shows the bar in an ordinary window, for window managers
// without dock support. Options.Headless paints into memory only.
package dockbar
