package logger

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Symbol constants (duplicated from sym to avoid a logger -> sym dependency)
const (
	symPulse      = "꩜"
	symPulseOpen  = "✿"
	symPulseClose = "❀"
	symIngest     = "⨳"
	symDB         = "⊔"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Everforest Dark color palette (natural forest greens, strong green presence)
type everforestColors struct {
	fg          string
	greenBright string // Bright leaf green
	greenMid    string // Mid forest green
	greenDeep   string // Deep forest green
	aqua        string // Blue-green water
	orange      string // Autumn orange
	yellow      string // Warm yellow
	red         string // Error red
	redBg       string
	yellowBg    string
}

var everforest = everforestColors{
	fg:          "\x1b[38;5;223m", // Soft beige (#d3c6aa)
	greenBright: "\x1b[38;5;108m", // Bright green (#a7c080) - prominent
	greenMid:    "\x1b[38;5;107m", // Mid green (#83c092) - timestamps
	greenDeep:   "\x1b[38;5;65m",  // Deep green (#7fbbb3) - secondary
	aqua:        "\x1b[38;5;109m", // Blue-green (#7fbbb3) - ids/network
	orange:      "\x1b[38;5;208m", // Warm orange (#e69875) - components
	yellow:      "\x1b[38;5;179m", // Soft yellow (#dbbc7f) - warnings
	red:         "\x1b[38;5;167m", // Warm red (#e67e80) - errors
	redBg:       "\x1b[48;5;52m",  // Dark red background
	yellowBg:    "\x1b[48;5;58m",  // Dark yellow background
}

// colorComponent hashes the component name so each component keeps a
// consistent color across lines.
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	switch hash % 3 {
	case 0:
		return everforest.greenBright
	case 1:
		return everforest.greenDeep
	default:
		return everforest.orange
	}
}

// colorizeMessage parses a log message and applies context-aware colorization
// to different components: run IDs, stage markers, symbols, etc.
// Returns the fully colorized message string with embedded ANSI codes.
func colorizeMessage(msg string) string {
	// Pattern for bracketed contexts: [run:XXX], [stage], etc.
	bracketPattern := regexp.MustCompile(`\[([^\]]+)\]`)

	result := strings.Builder{}
	lastIndex := 0

	matches := bracketPattern.FindAllStringSubmatchIndex(msg, -1)
	for _, match := range matches {
		// Text before bracket in base color, with symbols highlighted
		textBefore := msg[lastIndex:match[0]]
		if textBefore != "" {
			textBefore = colorizeSymbols(textBefore, everforest.greenBright)
			result.WriteString(everforest.fg)
			result.WriteString(textBefore)
			result.WriteString(colorReset)
		}

		bracketStart := match[0]
		bracketEnd := match[1]
		content := msg[match[2]:match[3]]

		// Run ids get the aqua id color; stage markers like [header],
		// [persist_join] get orange.
		color := everforest.orange
		if strings.HasPrefix(content, "run:") {
			color = everforest.aqua
		}

		result.WriteString(color)
		result.WriteString(msg[bracketStart:bracketEnd])
		result.WriteString(colorReset)

		lastIndex = bracketEnd
	}

	remaining := msg[lastIndex:]
	if remaining != "" {
		remaining = colorizeSymbols(remaining, everforest.greenBright)
		result.WriteString(everforest.fg)
		result.WriteString(remaining)
		result.WriteString(colorReset)
	}

	return result.String()
}

// colorizeSymbols replaces subsystem glyphs with colorized versions
func colorizeSymbols(text string, symbolColor string) string {
	for _, glyph := range []string{symPulse, symPulseOpen, symPulseClose, symIngest, symDB} {
		text = strings.ReplaceAll(text, glyph, symbolColor+glyph+colorReset)
	}
	return text
}

// minimalEncoder implements a calm, compact console encoder
// Format: "13:04:35  b.server  Batch ingested  r_1a2b (1024 rows, 3 failed)"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Create a base JSON encoder for field serialization (internal use only)
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	// Time
	final.AppendString(everforest.greenMid)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only show for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	// Message: context-aware colorization of brackets, symbols, and content
	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	// Fields: extract and color values
	if len(fields) > 0 {
		if extracted := extractFieldValues(fields); extracted != "" {
			final.AppendString("  ")
			final.AppendString(extracted)
		}
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + everforest.yellowBg + everforest.yellow + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + everforest.redBg + everforest.red + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + everforest.redBg + everforest.red + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: server -> s, bhav.ingest -> b.ingest
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(field.Integer)), 'g', -1, 64)
	case zapcore.Float32Type:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(field.Integer))), 'g', -1, 32)
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	}

	// For other interface types
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}

	return ""
}

// extractFieldValues pulls the values from structured fields.
// Known keys get compact formatting, everything else falls back to key=value
// so no field is ever silently discarded.
// Input: {"run_id": "r_123", "rows": 1024, "failed": 3}
// Output: "r_123 (1024 rows, 3 failed)" (with colored ids and numbers)
func extractFieldValues(fields []zapcore.Field) string {
	var values []string
	var rowCount, failedCount string

	fg := everforest.fg
	num := everforest.greenBright
	id := everforest.aqua

	for _, field := range fields {
		switch field.Key {
		case "run_id", "client_id", "ticker":
			if val := getFieldValue(field); val != "" {
				values = append(values, id+val+colorReset)
			}
		case "rows":
			rowCount = getFieldValue(field)
		case "failed":
			failedCount = getFieldValue(field)
		case "symbol":
			// Subsystem glyph: print bare, colored
			if val := getFieldValue(field); val != "" {
				values = append(values, num+val+colorReset)
			}
		case "file":
			if val := getFieldValue(field); val != "" {
				values = append(values, fg+val+colorReset)
			}
		case "duration_ms":
			if val := getFieldValue(field); val != "" {
				values = append(values, num+val+colorReset+"ms")
			}
		default:
			if val := getFieldValue(field); val != "" {
				values = append(values, fg+field.Key+"="+val+colorReset)
			}
		}
	}

	// Special formatting for batch stats
	if rowCount != "" && failedCount != "" {
		values = append(values, fg+"("+num+rowCount+colorReset+fg+" rows, "+num+failedCount+colorReset+fg+" failed)"+colorReset)
	} else if rowCount != "" {
		values = append(values, fg+"("+num+rowCount+colorReset+fg+" rows)"+colorReset)
	}

	if len(values) == 0 {
		return ""
	}

	return strings.Join(values, " ")
}
