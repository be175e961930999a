package bank

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cbegin/midifm-go/internal/fm"
)

// ErrMalformedPatch is returned for a definition with the wrong number of
// values or an unparsable id.
var ErrMalformedPatch = errors.New("bank: malformed patch")

var patchNumRegex = regexp.MustCompile(`-?\d+`)

const opValues = 11 // AR D1R D2R RR D1L TL KS MUL DT1 DT2 AMS

// LoadFile reads patch definitions from path.
func (b *ProgramBank) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open bank: %w", err)
	}
	defer f.Close()
	n, err := b.Load(f)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Load reads patch definitions from r.
func (b *ProgramBank) Load(r io.Reader) (int, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read bank: %w", err)
	}
	return b.LoadDefinitions(string(src))
}

// LoadDefinitions parses definitions of the form
//
//	#OPM@<program>{ALG FB [LFO] (AR D1R D2R RR D1L TL KS MUL DT1 DT2 AMS)x4};
//	#DRUM@<kit>:<key>{KEY PAN GROUP ALG FB [LFO] (...)x4};
//
// with // and /* */ comments. Program ids may include bank bits. Other
// directives are skipped. It returns the number of entries stored; entries
// before a malformed one are kept.
func (b *ProgramBank) LoadDefinitions(src string) (int, error) {
	src = stripComments(src)
	n := 0
	for i := 0; i < len(src); {
		if src[i] != '#' {
			i++
			continue
		}
		body, next := directive(src, i)
		i = next
		upper := strings.ToUpper(body)
		var err error
		switch {
		case strings.HasPrefix(upper, "OPM@"):
			err = b.parseOPM(body)
		case strings.HasPrefix(upper, "DRUM@"):
			err = b.parseDrum(body)
		default:
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// directive returns the text between '#' and ';' and the offset after it.
func directive(src string, at int) (string, int) {
	end := at + 1
	for end < len(src) && src[end] != ';' {
		end++
	}
	next := end
	if end < len(src) {
		next = end + 1
	}
	return strings.TrimSpace(src[at+1 : end]), next
}

func stripComments(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	for i := 0; i < len(src); i++ {
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '*' {
			i += 2
			for i < len(src) && !(i+1 < len(src) && src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
			continue
		}
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(src[i])
	}
	return out.String()
}

// splitDefinition separates "NAME@id{values}" into id and the numbers
// inside the braces. Numbers are only read after the brace so ids like
// OPM@052 do not leak into the values.
func splitDefinition(body string) (string, []int, error) {
	at := strings.Index(body, "@")
	brace := strings.Index(body, "{")
	if at < 0 || brace < at {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedPatch, body)
	}
	id := strings.TrimSpace(body[at+1 : brace])
	nums := patchNumRegex.FindAllString(body[brace:], -1)
	data := make([]int, 0, len(nums))
	for _, s := range nums {
		v, err := strconv.Atoi(s)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %q: %v", ErrMalformedPatch, s, err)
		}
		data = append(data, v)
	}
	return id, data, nil
}

func (b *ProgramBank) parseOPM(body string) error {
	idText, data, err := splitDefinition(body)
	if err != nil {
		return err
	}
	program, err := strconv.Atoi(idText)
	if err != nil {
		return fmt.Errorf("%w: program %q", ErrMalformedPatch, idText)
	}
	p, err := voiceFromData(data)
	if err != nil {
		return fmt.Errorf("OPM@%d: %w", program, err)
	}
	b.SetProgram(program, p)
	return nil
}

func (b *ProgramBank) parseDrum(body string) error {
	idText, data, err := splitDefinition(body)
	if err != nil {
		return err
	}
	kitText, keyText, ok := strings.Cut(idText, ":")
	if !ok {
		return fmt.Errorf("%w: drum id %q needs kit:key", ErrMalformedPatch, idText)
	}
	kit, err1 := strconv.Atoi(strings.TrimSpace(kitText))
	key, err2 := strconv.Atoi(strings.TrimSpace(keyText))
	if err1 != nil || err2 != nil {
		return fmt.Errorf("%w: drum id %q", ErrMalformedPatch, idText)
	}
	if len(data) < 3 {
		return fmt.Errorf("%w: DRUM@%d:%d has %d values", ErrMalformedPatch, kit, key, len(data))
	}
	p, err := voiceFromData(data[3:])
	if err != nil {
		return fmt.Errorf("DRUM@%d:%d: %w", kit, key, err)
	}
	b.SetDrum(kit, key, fm.DrumVoiceParams{VoiceParams: p, Key: data[0], Pan: data[1], Assign: data[2]})
	return nil
}

// voiceFromData reads ALG FB [LFO] followed by four operators.
func voiceFromData(data []int) (fm.VoiceParams, error) {
	var header int
	switch len(data) {
	case 2 + 4*opValues:
		header = 2
	case 3 + 4*opValues:
		header = 3
	default:
		return fm.VoiceParams{}, fmt.Errorf("%w: %d values", ErrMalformedPatch, len(data))
	}
	p := fm.VoiceParams{ALG: data[0], FB: data[1]}
	if header == 3 {
		p.LFO = data[2]
	}
	for i := range p.Op {
		d := data[header+i*opValues:]
		// DT2 (d[9]) has no equivalent here.
		p.Op[i] = fm.OperatorParams{
			AR: d[0], DR: d[1], SR: d[2], RR: d[3], SL: d[4],
			TL: d[5], KS: d[6], ML: d[7], DT: d[8], AMS: d[10],
		}
	}
	return p, nil
}
