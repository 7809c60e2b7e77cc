package perseus

// greekLetter pairs an uppercase Greek letter with its betacode encoding,
// which Perseus uses in the doc query parameter of letter pages.
type greekLetter struct {
	Name     string
	Betacode string
}

// letters enumerates the 24 alphabet sections of the lexicon in order.
var letters = []greekLetter{
	{"Α", "*a"}, {"Β", "*b"}, {"Γ", "*g"}, {"Δ", "*d"}, {"Ε", "*e"},
	{"Ζ", "*z"}, {"Η", "*h"}, {"Θ", "*q"}, {"Ι", "*i"}, {"Κ", "*k"},
	{"Λ", "*l"}, {"Μ", "*m"}, {"Ν", "*n"}, {"Ξ", "*c"}, {"Ο", "*o"},
	{"Π", "*p"}, {"Ρ", "*r"}, {"Σ", "*s"}, {"Τ", "*t"}, {"Υ", "*u"},
	{"Φ", "*f"}, {"Χ", "*x"}, {"Ψ", "*y"}, {"Ω", "*w"},
}
