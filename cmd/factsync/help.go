package main

import (
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Help styling, sharing the palette from styles.go.
var (
	helpHeaderStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	helpCmdStyle    = lipgloss.NewStyle().Foreground(colorPrimaryLight)
)

// helpTemplateFuncs style headers and command names only on a TTY.
var helpTemplateFuncs = template.FuncMap{
	"header": func(s string) string {
		if isTTY() {
			return helpHeaderStyle.Render(s)
		}
		return s
	},
	"cmd": func(s string) string {
		if isTTY() {
			return helpCmdStyle.Render(s)
		}
		return s
	},
	"muted": func(s string) string {
		if isTTY() {
			return mutedStyle.Render(s)
		}
		return s
	},
}

// helpTemplate is cobra's default help layout with styled sections.
const helpTemplate = `{{with .Long}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{header "Usage:"}}
  {{cmd .UseLine}}{{if .HasAvailableSubCommands}} {{muted "[command]"}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}{{header "Commands:"}}
{{range .Commands}}{{if .IsAvailableCommand}}  {{cmd (rpad .Name .NamePadding)}} {{.Short}}
{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}{{header "Flags:"}}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}{{header "Global Flags:"}}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}{{muted "Use"}} {{cmd (printf "%s [command] --help" .CommandPath)}} {{muted "for more information."}}
{{end}}`

// initHelp installs the styled help template on cmd and its subcommands.
// Template functions are registered globally with cobra, so call it once.
func initHelp(cmd *cobra.Command) {
	for name, fn := range helpTemplateFuncs {
		cobra.AddTemplateFunc(name, fn)
	}

	// Subcommands added after this call keep cobra's default template.
	applyHelpTemplate(cmd)
}

// applyHelpTemplate sets the help template on cmd and, recursively, on every
// subcommand.
func applyHelpTemplate(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
	for _, sub := range cmd.Commands() {
		applyHelpTemplate(sub)
	}
}
