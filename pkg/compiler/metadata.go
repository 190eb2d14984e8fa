package compiler

import (
	"sort"
	"strconv"
	"strings"
)

// Metadata describes an indicator as the host sees it. It is built once by
// Visit and is read-only afterwards.
type Metadata struct {
	Name           string          `json:"name"`
	ShortName      string          `json:"shortName,omitempty"`
	Overlay        bool            `json:"overlay"`
	Version        int             `json:"version,omitempty"`
	Inputs         []Input         `json:"inputs"`
	Plots          []Plot          `json:"plots"`
	UsedSources    map[string]bool `json:"usedSources"`
	HistoricalRefs map[string]bool `json:"historicalRefs"`
	Warnings       []Warning       `json:"warnings"`

	inputIDs map[*CallExpr]int
	plotIDs  map[*CallExpr]int
}

// Input describes one user-configurable input.
type Input struct {
	ID      int      `json:"id"`
	Var     string   `json:"var,omitempty"`
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Default string   `json:"default"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Options []string `json:"options,omitempty"`
	Tooltip string   `json:"tooltip,omitempty"`
	Group   string   `json:"group,omitempty"`
}

// Plot describes one plotted output.
type Plot struct {
	ID    int    `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Color string `json:"color"`
	Width int    `json:"width"`
	Style string `json:"style"`
}

// InputID returns the id assigned to an input call.
func (m *Metadata) InputID(c *CallExpr) (int, bool) {
	id, ok := m.inputIDs[c]
	return id, ok
}

// PlotID returns the id assigned to a plotting call.
func (m *Metadata) PlotID(c *CallExpr) (int, bool) {
	id, ok := m.plotIDs[c]
	return id, ok
}

// Sources returns UsedSources in sorted order.
func (m *Metadata) Sources() []string { return sortedKeys(m.UsedSources) }

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// priceSources are the built-in per-bar series.
var priceSources = map[string]bool{
	"open": true, "high": true, "low": true, "close": true, "volume": true,
	"hl2": true, "hlc3": true, "ohlc4": true, "hlcc4": true,
	"time": true, "bar_index": true,
}

var declarationCalls = map[string]bool{
	"indicator": true, "strategy": true, "library": true, "study": true,
}

var plotKinds = map[string]bool{
	"plot": true, "plotshape": true, "plotchar": true, "hline": true,
}

// inputTypes maps input.* functions to descriptor types.
var inputTypes = map[string]string{
	"input.int":       "integer",
	"input.float":     "float",
	"input.bool":      "bool",
	"input.string":    "string",
	"input.source":    "source",
	"input.session":   "session",
	"input.color":     "color",
	"input.timeframe": "timeframe",
	"input.symbol":    "symbol",
	"input.time":      "time",
	"input.price":     "price",
	"input.text_area": "text_area",
}

// legacyInputTypes maps the type= constants of the untyped input() form.
var legacyInputTypes = map[string]string{
	"integer":    "integer",
	"float":      "float",
	"bool":       "bool",
	"string":     "string",
	"source":     "source",
	"resolution": "timeframe",
	"session":    "session",
	"symbol":     "symbol",
	"color":      "color",
	"time":       "time",
	"price":      "price",
}

// Feature classification. Prefixes end with a dot and match whole namespaces.
var (
	unsupportedPrefixes = []string{
		"line.", "label.", "box.", "table.", "polyline.", "linefill.",
		"request.", "strategy.",
	}
	unsupportedCalls = map[string]string{
		"security":          "external data requests are not supported",
		"financial":         "external data requests are not supported",
		"plotcandle":        "candle plots are not supported",
		"plotbar":           "bar plots are not supported",
		"plotarrow":         "arrow plots are not supported",
		"runtime.error":     "runtime errors are not supported",
		"log.info":          "script logging is not supported",
		"log.warning":       "script logging is not supported",
		"log.error":         "script logging is not supported",
		"ticker.new":        "custom tickers are not supported",
		"ticker.heikinashi": "custom tickers are not supported",
	}
	partialCalls = map[string]string{
		"fill":           "fills are emitted as plain calls and may not render",
		"bgcolor":        "background colors are passed through to the host",
		"barcolor":       "bar colors are passed through to the host",
		"alertcondition": "alert conditions are recorded but never fire",
		"alert":          "alerts are recorded but never fire",
		"max_bars_back":  "history length is managed by the host",
	}
	deprecatedCalls = map[string]string{
		"study":      "indicator",
		"sma":        "ta.sma",
		"ema":        "ta.ema",
		"rma":        "ta.rma",
		"wma":        "ta.wma",
		"rsi":        "ta.rsi",
		"atr":        "ta.atr",
		"stdev":      "ta.stdev",
		"highest":    "ta.highest",
		"lowest":     "ta.lowest",
		"crossover":  "ta.crossover",
		"crossunder": "ta.crossunder",
		"cross":      "ta.cross",
		"change":     "ta.change",
		"tostring":   "str.tostring",
		"tonumber":   "str.tonumber",
		"abs":        "math.abs",
		"max":        "math.max",
		"min":        "math.min",
		"round":      "math.round",
		"sqrt":       "math.sqrt",
		"iff":        "the ?: operator",
	}
)

// metadataVisitor accumulates Metadata during a single walk.
type metadataVisitor struct {
	meta     *Metadata
	diag     *Diagnostics
	userFns  map[string]bool
	declared map[*CallExpr]string // input call -> variable it initializes
}

// Visit walks prog once and extracts indicator metadata. Feature warnings
// go to diag; a nil diag gets a private collector.
func Visit(prog *Program, diag *Diagnostics) *Metadata {
	if diag == nil {
		diag = NewDiagnostics()
	}
	v := &metadataVisitor{
		meta: &Metadata{
			UsedSources:    make(map[string]bool),
			HistoricalRefs: make(map[string]bool),
			inputIDs:       make(map[*CallExpr]int),
			plotIDs:        make(map[*CallExpr]int),
		},
		diag:     diag,
		userFns:  make(map[string]bool),
		declared: make(map[*CallExpr]string),
	}
	// user functions shadow the feature tables
	Inspect(prog, func(n Node) bool {
		if fn, ok := n.(*FuncDecl); ok {
			v.userFns[fn.Name] = true
		}
		return true
	})
	Inspect(prog, v.visit)
	v.meta.Warnings = diag.Warnings()
	return v.meta
}

func (v *metadataVisitor) visit(n Node) bool {
	switch n := n.(type) {
	case *VarDecl:
		if call, ok := n.Value.(*CallExpr); ok && n.Name != "" {
			v.declared[call] = n.Name
		}
	case *Ident:
		if priceSources[n.Name] {
			v.meta.UsedSources[n.Name] = true
		}
	case *IndexExpr:
		if id, ok := n.Object.(*Ident); ok {
			v.meta.HistoricalRefs[id.Name] = true
		}
	case *CallExpr:
		v.visitCall(n)
		// the callee is a function name, not a series read
		if _, ok := n.Callee.(*Ident); ok {
			for _, a := range n.Args {
				Inspect(a.Value, v.visit)
			}
			return false
		}
	}
	return true
}

func (v *metadataVisitor) visitCall(c *CallExpr) {
	name := calleeName(c.Callee)
	if name == "" || v.userFns[name] {
		return
	}
	switch {
	case declarationCalls[name]:
		v.declaration(name, c)
		if name == "study" {
			v.diag.Warn(SeverityDeprecated, name, c.Line, "study() is deprecated, use indicator()")
		}
		return
	case name == "input" || inputTypes[name] != "":
		v.input(name, c)
		return
	case plotKinds[name]:
		v.plot(name, c)
		return
	}
	v.classify(name, c.Line)
}

// classify emits at most one warning per call name.
func (v *metadataVisitor) classify(name string, line int) {
	if msg, ok := unsupportedCalls[name]; ok {
		v.diag.Warn(SeverityUnsupported, name, line, "%s: %s", name, msg)
		return
	}
	for _, prefix := range unsupportedPrefixes {
		if strings.HasPrefix(name, prefix) {
			v.diag.Warn(SeverityUnsupported, name, line, "%s is not supported and will be passed through", name)
			return
		}
	}
	if msg, ok := partialCalls[name]; ok {
		v.diag.Warn(SeverityPartial, name, line, "%s: %s", name, msg)
		return
	}
	if repl, ok := deprecatedCalls[name]; ok {
		if repl == "" {
			v.diag.Warn(SeverityDeprecated, name, line, "%s is deprecated", name)
		} else {
			v.diag.Warn(SeverityDeprecated, name, line, "%s is deprecated, use %s", name, repl)
		}
	}
}

func (v *metadataVisitor) declaration(name string, c *CallExpr) {
	m := v.meta
	if s, ok := stringArg(c.Arg("title", 0)); ok {
		m.Name = s
	}
	overlayPos := 2
	if name == "library" {
		overlayPos = 1
	} else if s, ok := stringArg(c.Arg("shorttitle", 1)); ok {
		m.ShortName = s
	}
	if b, ok := c.Arg("overlay", overlayPos).(*BoolLit); ok {
		m.Overlay = b.Value
	}
}

func (v *metadataVisitor) input(name string, c *CallExpr) {
	in := Input{
		ID:  len(v.meta.Inputs),
		Var: v.declared[c],
	}
	defval := c.Arg("defval", 0)
	in.Default = literalText(defval)

	if name == "input" {
		in.Type = legacyInputType(c, defval)
	} else {
		in.Type = inputTypes[name]
	}
	if s, ok := stringArg(c.Arg("title", 1)); ok {
		in.Title = s
	}
	if name == "input.int" || name == "input.float" {
		in.Min = numberArg(c.Arg("minval", 2))
		in.Max = numberArg(c.Arg("maxval", 3))
		in.Step = numberArg(c.Arg("step", 4))
	} else {
		in.Min = numberArg(c.Named("minval"))
		in.Max = numberArg(c.Named("maxval"))
		in.Step = numberArg(c.Named("step"))
	}
	if arr, ok := c.Named("options").(*ArrayLit); ok {
		for _, e := range arr.Elements {
			in.Options = append(in.Options, literalText(e))
		}
	}
	in.Tooltip, _ = stringArg(c.Named("tooltip"))
	in.Group, _ = stringArg(c.Named("group"))

	v.meta.inputIDs[c] = in.ID
	v.meta.Inputs = append(v.meta.Inputs, in)
}

// legacyInputType infers the type of input(defval, ...) from a type=
// argument or else from the default value.
func legacyInputType(c *CallExpr, defval Expr) string {
	if m, ok := c.Named("type").(*MemberExpr); ok {
		if t, ok := legacyInputTypes[m.Property]; ok {
			return t
		}
	}
	if u, ok := defval.(*UnaryExpr); ok && u.Op == "-" {
		defval = u.Operand
	}
	switch d := defval.(type) {
	case *NumberLit:
		if d.IsInteger() {
			return "integer"
		}
		return "float"
	case *BoolLit:
		return "bool"
	case *StringLit:
		return "string"
	case *ColorLit:
		return "color"
	case *Ident:
		if priceSources[d.Name] {
			return "source"
		}
	}
	if _, ok := resolveColor(defval); ok {
		return "color"
	}
	return "float"
}

func (v *metadataVisitor) plot(kind string, c *CallExpr) {
	p := Plot{
		ID:    len(v.meta.Plots),
		Kind:  kind,
		Color: DefaultPlotColor,
		Width: 1,
		Style: "line",
	}
	p.Title = "Plot " + strconv.Itoa(p.ID+1)
	if s, ok := stringArg(c.Arg("title", 1)); ok {
		p.Title = s
	}

	// positional color and style slots differ per kind
	colorPos, stylePos, widthPos := 2, 4, 3
	switch kind {
	case "plotshape":
		colorPos, stylePos, widthPos = 4, 2, -1
	case "plotchar":
		colorPos, stylePos, widthPos = 4, -1, -1
	case "hline":
		colorPos, stylePos, widthPos = 2, 3, 4
	}
	if hex, ok := resolveColor(c.Arg("color", colorPos)); ok {
		p.Color = hex
	}
	if w := numberArg(c.Arg("linewidth", widthPos)); w != nil {
		p.Width = int(*w)
	}
	styleName := "style"
	if kind == "hline" {
		styleName = "linestyle"
	}
	if m, ok := c.Arg(styleName, stylePos).(*MemberExpr); ok {
		p.Style = strings.TrimPrefix(m.Property, "style_")
	}

	v.meta.plotIDs[c] = p.ID
	v.meta.Plots = append(v.meta.Plots, p)
}

// calleeName flattens an identifier or dotted member path; anything else
// yields "".
func calleeName(e Expr) string {
	switch v := e.(type) {
	case *Ident:
		return v.Name
	case *MemberExpr:
		if obj := calleeName(v.Object); obj != "" {
			return obj + "." + v.Property
		}
	}
	return ""
}

func stringArg(e Expr) (string, bool) {
	if s, ok := e.(*StringLit); ok {
		return s.Value, true
	}
	return "", false
}

func numberArg(e Expr) *float64 {
	f, ok := literalValue(e)
	if !ok {
		return nil
	}
	return &f
}

// literalText renders a default or option value as the host displays it.
func literalText(e Expr) string {
	switch v := e.(type) {
	case nil:
		return ""
	case *StringLit:
		return v.Value
	case *NaLit:
		return "na"
	case *UnaryExpr:
		if n, ok := v.Operand.(*NumberLit); ok && v.Op == "-" {
			return "-" + n.Value
		}
	}
	if hex, ok := resolveColor(e); ok {
		return hex
	}
	return e.String()
}
