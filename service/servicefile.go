package service

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// serviceFileVars is the substitution context for service-file templates:
// {dataDir}, {configFile}, and any declared environment keys. substitute
// fills each placeholder from this map; a missing key renders as the empty
// string, the map's zero value on a lookup miss.
type serviceFileVars map[string]string

func buildVars(dataDir, configFile string, env map[string]string) serviceFileVars {
	vars := serviceFileVars{"dataDir": dataDir, "configFile": configFile}
	for k, v := range env {
		vars[k] = v
	}
	return vars
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>EnvironmentVariables</key>
	<dict>
{{- range $k, $v := .Env}}
		<key>{{$k}}</key>
		<string>{{$v}}</string>
{{- end}}
	</dict>
</dict>
</plist>
`))

type plistData struct {
	Label string
	Args  []string
	Env   map[string]string
}

// GeneratePlist renders a darwin launchd property list for def, substituting
// {dataDir}/{configFile}/env placeholders in Args and Env via vars.
func GeneratePlist(def ServiceDefinition, dataDir, configFile string) (string, error) {
	vars := buildVars(dataDir, configFile, def.Env)

	args := make([]string, len(def.Args))
	for i, a := range def.Args {
		args[i] = substitute(a, vars)
	}
	env := make(map[string]string, len(def.Env))
	for k, v := range def.Env {
		env[k] = substitute(v, vars)
	}

	var buf bytes.Buffer
	programArgs := append([]string{def.Executable}, args...)
	if err := plistTemplate.Execute(&buf, plistData{Label: "sh." + def.Name, Args: programArgs, Env: env}); err != nil {
		return "", errors.Wrapf(err, "rendering plist for %s", def.Name)
	}
	return buf.String(), nil
}

var systemdTemplate = template.Must(template.New("systemd").Parse(`[Unit]
Description={{.Description}}

[Service]
Type=simple
ExecStart={{.ExecStart}}
{{- range .Env}}
Environment={{.}}
{{- end}}

[Install]
WantedBy=multi-user.target
`))

type systemdData struct {
	Description string
	ExecStart   string
	Env         []string
}

// GenerateSystemdUnit renders a linux systemd unit for def, substituting
// {dataDir}/{configFile}/env placeholders the same way GeneratePlist does.
func GenerateSystemdUnit(def ServiceDefinition, dataDir, configFile string) (string, error) {
	vars := buildVars(dataDir, configFile, def.Env)

	args := make([]string, len(def.Args))
	for i, a := range def.Args {
		args[i] = substitute(a, vars)
	}
	execStart := strings.Join(append([]string{def.Executable}, args...), " ")

	var env []string
	for k, v := range def.Env {
		env = append(env, k+"="+substitute(v, vars))
	}

	var buf bytes.Buffer
	data := systemdData{Description: def.Description, ExecStart: execStart, Env: env}
	if err := systemdTemplate.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "rendering systemd unit for %s", def.Name)
	}
	return buf.String(), nil
}

// substitute replaces every "{key}" placeholder in s with vars[key],
// rendering an empty string for any key vars doesn't carry.
func substitute(s string, vars serviceFileVars) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '{')
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += start

		b.WriteString(s[:start])
		key := s[start+1 : end]
		b.WriteString(vars[key])
		s = s[end+1:]
	}
	return b.String()
}
