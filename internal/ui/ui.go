package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kazuninishiki/SysMonServer/internal/model"
)

// IntervalSetter changes the server's cadence.
type IntervalSetter interface {
	SetInterval(ms int) error
	Interval() int
}

// Model renders snapshots received from the live channel.
type Model struct {
	latest   model.Snapshot
	received bool
	stream   <-chan model.Snapshot
	control  IntervalSetter
	interval int
	status   string
	width    int
	height   int
}

func New(stream <-chan model.Snapshot, control IntervalSetter, intervalMs int) *Model {
	if intervalMs <= 0 {
		intervalMs = 1000
	}
	return &Model{
		latest:   model.Empty(),
		stream:   stream,
		control:  control,
		interval: intervalMs,
		width:    120,
		height:   40,
	}
}

// Messages
type (
	tickMsg   struct{}
	closedMsg struct{}
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "+", "=":
			m.changeInterval(m.interval * 2)
		case "-", "_":
			m.changeInterval(m.interval / 2)
		}
	case tickMsg:
		select {
		case snap, ok := <-m.stream:
			if !ok {
				return m, func() tea.Msg { return closedMsg{} }
			}
			m.latest = snap
			m.received = true
		default:
		}
		if ms := m.control.Interval(); ms > 0 {
			m.interval = ms
		}
		return m, tickCmd()
	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) changeInterval(ms int) {
	ms = max(100, min(10000, ms))
	if ms == m.interval {
		return
	}
	if err := m.control.SetInterval(ms); err != nil {
		m.status = err.Error()
		return
	}
	m.interval = ms
	m.status = fmt.Sprintf("requested %dms", ms)
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	stamp := "waiting for server..."
	if m.received {
		stamp = s.TimestampUTC.Local().Format("Mon Jan 2 15:04:05 MST 2006")
	}
	header := titleStyle.Render(fmt.Sprintf("System Monitor: %s (%s)", s.Hostname, s.PlatformName)) + "  " +
		subtleStyle.Render(stamp)

	cpuCard := card("CPU",
		fmt.Sprintf("%s\n%.1f / %.1f GHz",
			gaugeBar(s.CPU.UsagePercent, 28), s.CPU.FrequencyGHz, s.CPU.MaxFrequencyGHz))

	memCard := card("Memory",
		fmt.Sprintf("%s\n%.1f / %.1f GB",
			gaugeBar(s.Memory.UsagePercent, 28), s.Memory.UsedGB, s.Memory.TotalGB))

	gpuCard := card("GPU", gpuBody(s.GPU))

	n := s.Network
	netCard := card("Network",
		fmt.Sprintf("%s\nUp %.1f Mb/s  Down %.1f Mb/s\nSent %.2f GB  Recv %.2f GB",
			gaugeBar(n.UsagePercent, 28), n.UploadMbps, n.DownloadMbps, n.TotalSentGB, n.TotalReceivedGB))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, gpuCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, netCard,
		card("Disks", renderDisks(s.Disks, 8)),
		card(fmt.Sprintf("Clients (%d)", len(s.ConnectedClients)), renderClients(s.ConnectedClients, 6)))

	footer := subtleStyle.Render(fmt.Sprintf("interval %dms  [+/-] change  [q] quit  %s  %s",
		m.interval, strings.Join(s.IPAddresses, " "), m.status))

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, footer)
}

func gpuBody(g model.GPU) string {
	if g.Name == model.GPUNotAvailable {
		return subtleStyle.Render(g.Name)
	}
	return fmt.Sprintf("%s\n%s\nmem %.1f/%.0f GB  %2.0f°C (max %2.0f)\n%3.0f/%3.0f W  fan %.0f rpm\ndriver %s  cuda %s",
		truncate(g.Name, 34),
		gaugeBar(g.UsagePercent, 28),
		g.MemoryUsedGB, g.MemoryTotalGB, g.TemperatureC, g.MaxTemperatureC,
		g.PowerDrawW, g.MaxPowerW, g.FanSpeedRPM,
		g.DriverVersion, g.CUDAVersion)
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 || math.IsNaN(pct) {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderDisks(disks map[string]model.Disk, limit int) string {
	if len(disks) == 0 {
		return subtleStyle.Render("no volumes")
	}
	ids := make([]string, 0, len(disks))
	for id := range disks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var b strings.Builder
	for i, id := range ids {
		if i == limit {
			fmt.Fprintf(&b, "+%d more\n", len(ids)-limit)
			break
		}
		d := disks[id]
		fmt.Fprintf(&b, "%-14s %5.1f%% %7.1f/%-7.1fGB %s\n",
			truncate(d.Label, 14), pct(d.UsedGB, d.TotalGB), d.UsedGB, d.TotalGB, d.FilesystemType)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderClients(clients map[string]model.Client, limit int) string {
	if len(clients) == 0 {
		return subtleStyle.Render("none")
	}
	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := clients[ids[i]], clients[ids[j]]
		if a.ConnectedAt.Equal(b.ConnectedAt) {
			return ids[i] < ids[j]
		}
		return a.ConnectedAt.Before(b.ConnectedAt)
	})
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %-8s %s\n", "address", "id", "since")
	for i := 0; i < min(limit, len(ids)); i++ {
		c := clients[ids[i]]
		fmt.Fprintf(&b, "%-16s %-8s %s\n",
			truncate(c.RemoteAddress, 16), truncate(ids[i], 8), c.ConnectedAt.Local().Format("15:04:05"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func pct(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total * 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
