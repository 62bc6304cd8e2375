// Package autostart installs the service to start on login.
package autostart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const label = "com.vkeyboard.agent"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>--config</string>
        <string>{{.ConfigPath}}</string>
{{- if .Listen}}
        <string>--listen</string>
        <string>{{.Listen}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const systemdUserUnit = `[Unit]
Description=vkeyboard key injection service

[Service]
ExecStart="{{.ExecutablePath}}" --config "{{.ConfigPath}}"{{if .Listen}} --listen "{{.Listen}}"{{end}}
Restart=on-failure

[Install]
WantedBy=default.target
`

// unit describes what gets launched at login
type unit struct {
	Label          string
	ExecutablePath string
	ConfigPath     string
	Listen         string // optional listen address override
}

// Enable installs a login item that runs this executable with configPath.
// A non-empty listen is passed on as --listen.
func Enable(configPath, listen string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}

	path, tmpl, err := unitFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return render(f, tmpl, unit{Label: label, ExecutablePath: execPath, ConfigPath: absConfig, Listen: listen})
}

// Disable removes the login item
func Disable() error {
	path, _, err := unitFile()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	path, _, err := unitFile()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// unitFile returns the login item path and template for this platform
func unitFile() (string, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}
	return unitFileFor(runtime.GOOS, home)
}

func unitFileFor(goos, home string) (string, string, error) {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), macLaunchAgentPlist, nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", "vkeyboard.service"), systemdUserUnit, nil
	default:
		return "", "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

func render(w io.Writer, text string, u unit) error {
	tmpl, err := template.New("unit").Parse(text)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, u)
}
