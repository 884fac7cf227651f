package timeservice

import "strings"

// ServerPlaceholder is replaced by the target server in Commands.Configure.
const ServerPlaceholder = "{server}"

// Commands is the argv of every time-service operation plus the output
// markers used to interpret the results. The defaults drive Windows Time
// (w32time).
type Commands struct {
	QueryStatus        []string `yaml:"query_status"`
	Enable             []string `yaml:"enable"`
	Stop               []string `yaml:"stop"`
	Configure          []string `yaml:"configure"`
	Start              []string `yaml:"start"`
	StartFallback      []string `yaml:"start_fallback"`
	Resync             []string `yaml:"resync"`
	QuerySource        []string `yaml:"query_source"`
	QueryConfiguration []string `yaml:"query_configuration"`

	// NotRunningMarkers identify a stop failure caused by the service
	// already being stopped.
	NotRunningMarkers []string `yaml:"not_running_markers"`
	// SuccessMarkers identify a resync that completed.
	SuccessMarkers []string `yaml:"success_markers"`
	// ImportantKeys select the configuration lines worth reporting.
	ImportantKeys []string `yaml:"important_keys"`
}

// Defaults fills every empty field with the Windows Time command set.
func (c *Commands) Defaults() {
	def := WindowsCommands()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&c.QueryStatus, def.QueryStatus)
	fill(&c.Enable, def.Enable)
	fill(&c.Stop, def.Stop)
	fill(&c.Configure, def.Configure)
	fill(&c.Start, def.Start)
	fill(&c.StartFallback, def.StartFallback)
	fill(&c.Resync, def.Resync)
	fill(&c.QuerySource, def.QuerySource)
	fill(&c.QueryConfiguration, def.QueryConfiguration)
	fill(&c.NotRunningMarkers, def.NotRunningMarkers)
	fill(&c.SuccessMarkers, def.SuccessMarkers)
	fill(&c.ImportantKeys, def.ImportantKeys)
}

// WindowsCommands returns the w32time command set.
func WindowsCommands() Commands {
	return Commands{
		QueryStatus:        []string{"sc", "query", "w32time"},
		Enable:             []string{"sc", "config", "w32time", "start=", "auto"},
		Stop:               []string{"net", "stop", "w32time"},
		Configure:          []string{"w32tm", "/config", "/manualpeerlist:" + ServerPlaceholder, "/syncfromflags:manual", "/reliable:yes", "/update"},
		Start:              []string{"net", "start", "w32time"},
		StartFallback:      []string{"sc", "start", "w32time"},
		Resync:             []string{"w32tm", "/resync", "/force"},
		QuerySource:        []string{"w32tm", "/query", "/source"},
		QueryConfiguration: []string{"w32tm", "/query", "/configuration"},
		NotRunningMarkers: []string{
			"service has not been started",
			"is not started",
			"not running",
			"nie jest uruchomiona",
		},
		SuccessMarkers: []string{
			"successfully synchronized",
			"the command completed successfully",
		},
		ImportantKeys: []string{"Type", "NtpServer", "TimeProviders"},
	}
}

// expand substitutes the server placeholder in argv.
func expand(argv []string, server string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, ServerPlaceholder, server)
	}
	return out
}
