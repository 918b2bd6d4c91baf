// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"
)

var methodStyles = map[string]lipgloss.Style{
	http.MethodGet:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	http.MethodPost:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	http.MethodPut:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	http.MethodDelete:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	http.MethodPatch:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
	http.MethodHead:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
	http.MethodOptions: lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Bold(true),
}

// colorWriter downsamples ANSI colors to what w supports. Production
// output is always plain.
func (a *App) colorWriter(w io.Writer) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if a.settings.Environment == EnvProduction {
		cpw.Profile = colorprofile.NoTTY
	}
	return cpw
}

// printBanner writes the startup banner for addr. The route table is only
// shown in development.
func (a *App) printBanner(addr string) {
	if a.bannerOut == nil {
		return
	}
	w := a.colorWriter(a.bannerOut)

	gradient := []string{"10", "11"}
	if a.settings.Environment == EnvDevelopment {
		gradient = []string{"12", "14", "10", "11"}
	}
	var art strings.Builder
	for _, line := range figure.NewFigure(a.settings.Name, "", false).Slicify() {
		for i, r := range line {
			art.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(gradient[i%len(gradient)])).
				Bold(true).
				Render(string(r)))
		}
		art.WriteByte('\n')
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	off := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	var out strings.Builder
	fmt.Fprintln(&out, label.Render("Version:")+"  "+value.Render(a.settings.Version))
	fmt.Fprintln(&out, label.Render("Environment:")+"  "+value.Render(a.settings.Environment))
	fmt.Fprintln(&out, label.Render("Address:")+"  "+value.Render("http://"+addr))
	fmt.Fprintln(&out, label.Render("Routes:")+"  "+value.Render(strconv.Itoa(len(a.infos))))
	if a.settings.Metrics.Enabled && a.metrics != nil {
		fmt.Fprintln(&out, label.Render("Metrics:")+"  "+value.Render("http://"+addr+a.settings.Metrics.Path))
	} else {
		fmt.Fprintln(&out, label.Render("Metrics:")+"  "+off.Render("Disabled"))
	}
	fmt.Fprintln(&out, label.Render("Cache:")+"  "+value.Render(a.settings.Cache.Backend))

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, art.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, out.String())
	if a.settings.Environment == EnvDevelopment && len(a.infos) > 0 {
		_, _ = fmt.Fprintln(w)
		a.renderRoutes(w, 80)
	}
	_, _ = fmt.Fprintln(w)
}

// PrintRoutes writes the route table to w: one row per method and path
// with the handler name, its dependencies and its flags. The application is
// frozen first; registration errors are returned.
func (a *App) PrintRoutes(w io.Writer) error {
	if err := a.Freeze(); err != nil {
		return err
	}
	if len(a.infos) == 0 {
		_, err := fmt.Fprintln(w, "No routes registered")
		return err
	}
	a.renderRoutes(a.colorWriter(w), 120)
	return nil
}

func (a *App) renderRoutes(w io.Writer, width int) {
	color := a.settings.Environment == EnvDevelopment
	rows := make([][]string, 0, len(a.infos))
	for _, info := range a.infos {
		method := info.Method
		if style, ok := methodStyles[method]; ok && color {
			method = style.Render(method)
		}
		var flags []string
		if info.Guards > 0 {
			flags = append(flags, "guarded")
		}
		if info.Blocking {
			flags = append(flags, "blocking")
		}
		if info.Cached {
			flags = append(flags, "cached")
		}
		rows = append(rows, []string{
			method,
			info.Path,
			info.Name,
			dash(strings.Join(info.Deps, ", ")),
			dash(strings.Join(flags, " ")),
		})
	}

	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			width = min(width, tw)
		}
	}

	border := lipgloss.NewStyle()
	if color {
		border = border.Foreground(lipgloss.Color("240"))
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow && color {
				s = s.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return s
		}).
		Headers("Method", "Path", "Handler", "Dependencies", "Flags").
		Rows(rows...).
		Width(max(60, width))

	_, _ = fmt.Fprintln(w, t.Render())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
