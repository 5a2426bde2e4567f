package config

// DefaultProcessImage is the dedicated server binary the watchdog looks
// for when server.process_image is unset.
const DefaultProcessImage = "ioq3ded"

// DefaultBacklogFilters drop replayed chat and admin chatter so history
// cannot re-trigger command handling. Patterns match lines after the
// timestamp has been stripped.
//
// Users can override via config.yaml: logfile.backlog_filters
var DefaultBacklogFilters = []string{
	`^say: `,
	`^sayteam: `,
	`^tell: `,
	`^saytell: `,
	`^radio: `,
}

// Backends lists the accepted values of server.backend.
var Backends = []string{"rcon", "console"}

// Encodings lists the accepted values of logfile.encoding.
var Encodings = []string{"utf-8", "utf8", "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252"}
