// Package wlogging configures application logging in one call.
//
// A Wlogging facade resolves the project root, creates <root>/logs and
// builds four handlers:
//
//   - stdout prints records at or above the console level (WARNING by
//     default) from the project's own sources, as
//     "<time> - <LEVEL> - <module> - <message>".
//   - stdout_announce prints ANNOUNCE records as the bare message.
//   - logfile appends every record as one JSON object per line to
//     logs/logs.jsonl, rotating by size into numbered backups.
//   - queue_handler fronts logfile so callers never wait on file I/O.
//
// Typical use:
//
//	func main() {
//		defer wlogging.Shutdown()
//
//		w, err := wlogging.New(wlogging.Config{RootDirectory: "/srv/app"})
//		if err != nil {
//			log.Fatal(err)
//		}
//		lg, err := w.GetLogger()
//		if err != nil {
//			log.Fatal(err)
//		}
//		lg.Announce("ready")
//		lg.Warning("cache miss rate %d%%", 40)
//	}
//
// ANNOUNCE ranks above CRITICAL, so no threshold hides it. Records only
// reach the file once GetLogger has started the pipeline, and buffered
// records are written when Shutdown, Stop or Close runs.
package wlogging
