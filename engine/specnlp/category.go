// Package specnlp extracts component categories, manufacturers and
// generic keywords from unstructured requirement text using regex
// alternation and confidence scoring. No external dependencies — this is
// a cheap pre-filter meant to save an LLM classification call on the
// common case where the requirement text already names a category or
// manufacturer outright.
package specnlp

import (
	"regexp"
	"sort"
	"strings"
)

// OtherCategory is the fallback category when nothing in the text
// matches a known component category.
const OtherCategory = "Other"

// categoryAliases maps a lowercase alias/synonym to its canonical
// category name. Longer, more specific aliases win ties via regex
// alternation ordering (longest first).
var categoryAliases = map[string]string{
	"resistor":            "Resistor",
	"res":                 "Resistor",
	"potentiometer":       "Resistor",
	"pot":                 "Resistor",
	"capacitor":           "Capacitor",
	"cap":                 "Capacitor",
	"ceramic capacitor":   "Capacitor",
	"electrolytic":        "Capacitor",
	"tantalum capacitor":  "Capacitor",
	"inductor":            "Inductor",
	"choke":               "Inductor",
	"diode":               "Diode",
	"zener":               "Diode",
	"zener diode":         "Diode",
	"schottky":            "Diode",
	"schottky diode":      "Diode",
	"rectifier":           "Diode",
	"led":                 "LED",
	"transistor":          "Transistor",
	"bjt":                 "Transistor",
	"mosfet":              "Transistor",
	"nmos":                "Transistor",
	"pmos":                "Transistor",
	"jfet":                "Transistor",
	"igbt":                "Transistor",
	"op-amp":              "OpAmp",
	"opamp":               "OpAmp",
	"operational amplifier": "OpAmp",
	"comparator":          "Comparator",
	"voltage regulator":   "VoltageRegulator",
	"regulator":           "VoltageRegulator",
	"ldo":                 "VoltageRegulator",
	"switching regulator": "VoltageRegulator",
	"buck converter":      "VoltageRegulator",
	"boost converter":     "VoltageRegulator",
	"microcontroller":     "Microcontroller",
	"mcu":                 "Microcontroller",
	"fpga":                "FPGA",
	"asic":                "ASIC",
	"connector":           "Connector",
	"header":              "Connector",
	"terminal block":      "Connector",
	"relay":               "Relay",
	"switch":              "Switch",
	"pushbutton":          "Switch",
	"sensor":              "Sensor",
	"temperature sensor":  "Sensor",
	"current sensor":      "Sensor",
	"pressure sensor":     "Sensor",
	"crystal":             "Crystal",
	"oscillator":          "Crystal",
	"resonator":           "Crystal",
	"fuse":                "Fuse",
	"transformer":         "Transformer",
	"antenna":             "Antenna",
	"battery":             "Battery",
	"cable":               "Cable",
	"wire":                "Cable",
}

// manufacturerAliases maps a lowercase alias to a canonical manufacturer
// name, for well-known electronic component vendors.
var manufacturerAliases = map[string]string{
	"texas instruments": "Texas Instruments",
	"ti":                "Texas Instruments",
	"analog devices":    "Analog Devices",
	"adi":               "Analog Devices",
	"microchip":         "Microchip Technology",
	"stmicroelectronics": "STMicroelectronics",
	"st micro":          "STMicroelectronics",
	"vishay":            "Vishay",
	"murata":            "Murata",
	"yageo":             "Yageo",
	"panasonic":         "Panasonic",
	"kemet":             "KEMET",
	"onsemi":            "onsemi",
	"on semiconductor":  "onsemi",
	"infineon":          "Infineon",
	"nxp":               "NXP Semiconductors",
	"renesas":           "Renesas",
	"diodes inc":        "Diodes Incorporated",
	"rohm":              "ROHM",
	"littelfuse":        "Littelfuse",
	"molex":             "Molex",
	"te connectivity":   "TE Connectivity",
	"amphenol":          "Amphenol",
	"bourns":            "Bourns",
	"nichicon":          "Nichicon",
}

var (
	categoryRe     = buildAlternation(categoryAliases)
	manufacturerRe = buildAlternation(manufacturerAliases)
)

func buildAlternation(aliases map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for i, k := range keys {
		keys[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(keys, "|") + `)\b`)
}

// ClassifyCategory returns the category of the leftmost alias mentioned in
// text, or (OtherCategory, 0) if nothing matches. Confidence reflects
// match specificity: an exact canonical category name scores higher than
// a loose alias.
func ClassifyCategory(text string) (string, float64) {
	loc := categoryRe.FindStringSubmatch(text)
	if loc == nil {
		return OtherCategory, 0
	}
	alias := strings.ToLower(loc[1])
	canonical := categoryAliases[alias]
	confidence := 0.75
	if strings.EqualFold(canonical, alias) {
		confidence = 0.95
	}
	return canonical, confidence
}

// ExtractManufacturer returns the manufacturer of the leftmost alias
// mentioned in text, or ("", 0) if none is found.
func ExtractManufacturer(text string) (string, float64) {
	loc := manufacturerRe.FindStringSubmatch(text)
	if loc == nil {
		return "", 0
	}
	alias := strings.ToLower(loc[1])
	canonical := manufacturerAliases[alias]
	confidence := 0.8
	if strings.EqualFold(canonical, alias) {
		confidence = 0.95
	}
	return canonical, confidence
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"what": true, "where": true, "when": true, "how": true, "which": true,
	"who": true, "whom": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "me": true, "my": true, "it": true,
	"its": true, "and": true, "but": true, "or": true, "not": true,
	"need": true, "want": true, "looking": true,
}

// ExtractKeywords does simple stopword-filtered keyword extraction from
// a requirement or question, used both for recommendation graph
// enrichment and for logging/diagnostics.
func ExtractKeywords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, "?.,!;:'\"")
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}
