package tactile

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// ToolMissingMarker is printed by the Linux script when no keystroke
// injection utility is installed. The dispatcher maps it to a manual advisory.
const ToolMissingMarker = "cfsubmit: keystroke tool unavailable"

// Timing holds the fixed delays baked into every script.
type Timing struct {
	// Settle waits for the submit page to load before any keystroke.
	Settle time.Duration `json:"settle" yaml:"settle"`

	// KeyDelay separates select-all from paste and the Tab/Enter keys.
	KeyDelay time.Duration `json:"key_delay" yaml:"key_delay"`

	// PasteDelay lets the editor widget absorb a large paste.
	PasteDelay time.Duration `json:"paste_delay" yaml:"paste_delay"`
}

// DefaultTiming returns the delays the keystroke sequence was tuned with.
func DefaultTiming() Timing {
	return Timing{
		Settle:     2500 * time.Millisecond,
		KeyDelay:   150 * time.Millisecond,
		PasteDelay: 600 * time.Millisecond,
	}
}

// Strategy is one platform's automation: an interpreter invocation plus the
// timing it was rendered with. The sequence is select-all, paste, Tab, Tab,
// Enter, which moves focus from the code editor past the language selector
// to the submit button. It depends on the judge's page layout and is a
// heuristic, not a guaranteed action.
type Strategy struct {
	Platform Platform `json:"platform"`
	Command  Command  `json:"command"`
	Timing   Timing   `json:"timing"`

	// Tool is the keystroke utility the script depends on, if any.
	Tool string `json:"tool,omitempty"`

	// Label is echoed in the job's Outcome.
	Label string `json:"label,omitempty"`
}

// Supported reports whether the strategy spawns anything.
func (s Strategy) Supported() bool {
	return s.Platform != PlatformUnsupported && s.Command.Binary != ""
}

// PlatformFromGOOS maps a runtime.GOOS value to a strategy family.
func PlatformFromGOOS(goos string) Platform {
	switch goos {
	case "darwin":
		return PlatformMac
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return PlatformLinux
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnsupported
	}
}

// ParsePlatform accepts a platform name from configuration. Empty or "auto"
// resolves to goos.
func ParsePlatform(name, goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return PlatformFromGOOS(goos)
	case "darwin", "mac", "macos":
		return PlatformMac
	case "linux":
		return PlatformLinux
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnsupported
	}
}

var scriptFuncs = template.FuncMap{
	"secs": func(d time.Duration) string {
		return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	},
	"millis": func(d time.Duration) string {
		return strconv.FormatInt(d.Milliseconds(), 10)
	},
}

// macScript drives System Events. Key code 48 is Tab, 36 is Return.
var macScript = template.Must(template.New("mac").Funcs(scriptFuncs).Parse(`delay {{secs .Settle}}
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set frontmost of frontApp to true
	keystroke "a" using command down
	delay {{secs .KeyDelay}}
	keystroke "v" using command down
	delay {{secs .PasteDelay}}
	key code 48
	delay {{secs .KeyDelay}}
	key code 48
	delay {{secs .KeyDelay}}
	key code 36
end tell
`))

// linuxScript checks for xdotool and degrades to an advisory without it.
var linuxScript = template.Must(template.New("linux").Funcs(scriptFuncs).Parse(`sleep {{secs .Settle}}
if command -v xdotool >/dev/null 2>&1; then
	xdotool key --clearmodifiers ctrl+a
	sleep {{secs .KeyDelay}}
	xdotool key --clearmodifiers ctrl+v
	sleep {{secs .PasteDelay}}
	xdotool key Tab
	sleep {{secs .KeyDelay}}
	xdotool key Tab
	sleep {{secs .KeyDelay}}
	xdotool key Return
else
	echo "` + ToolMissingMarker + `: install xdotool or paste and submit manually"
fi
`))

var windowsScript = template.Must(template.New("windows").Funcs(scriptFuncs).Parse(`$ErrorActionPreference = 'Stop'
$shell = New-Object -ComObject WScript.Shell
Start-Sleep -Milliseconds {{millis .Settle}}
$shell.SendKeys('^a')
Start-Sleep -Milliseconds {{millis .KeyDelay}}
$shell.SendKeys('^v')
Start-Sleep -Milliseconds {{millis .PasteDelay}}
$shell.SendKeys('{TAB}')
Start-Sleep -Milliseconds {{millis .KeyDelay}}
$shell.SendKeys('{TAB}')
Start-Sleep -Milliseconds {{millis .KeyDelay}}
$shell.SendKeys('{ENTER}')
`))

func render(t *template.Template, timing Timing) string {
	var buf bytes.Buffer
	// The templates are static and only format durations.
	_ = t.Execute(&buf, timing)
	return buf.String()
}

// SelectStrategy picks the automation for platform. It is pure: nothing is
// looked up or spawned here.
func SelectStrategy(platform Platform, timing Timing) Strategy {
	switch platform {
	case PlatformMac:
		return Strategy{
			Platform: platform,
			Timing:   timing,
			Command: Command{
				Binary:    "osascript",
				Arguments: []string{"-e", render(macScript, timing)},
			},
		}
	case PlatformLinux:
		return Strategy{
			Platform: platform,
			Timing:   timing,
			Tool:     "xdotool",
			Command: Command{
				Binary:    "sh",
				Arguments: []string{"-c", render(linuxScript, timing)},
			},
		}
	case PlatformWindows:
		return Strategy{
			Platform: platform,
			Timing:   timing,
			Command: Command{
				Binary:    "powershell",
				Arguments: []string{"-NoProfile", "-NonInteractive", "-Command", render(windowsScript, timing)},
			},
		}
	default:
		return Strategy{Platform: PlatformUnsupported, Timing: timing}
	}
}
