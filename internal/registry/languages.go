package registry

// countryLanguages maps a registry country name to the language tags used
// for that country's location records. Countries without an entry get no
// language tags.
var countryLanguages = map[string][]string{
	"United States":  {"en"},
	"United Kingdom": {"en"},
	"Ireland":        {"en"},
	"Canada":         {"en", "fr"},
	"Australia":      {"en"},
	"New Zealand":    {"en"},
	"France":         {"fr"},
	"Belgium":        {"fr", "nl"},
	"Switzerland":    {"de", "fr", "it"},
	"Germany":        {"de"},
	"Austria":        {"de"},
	"Netherlands":    {"nl"},
	"Spain":          {"es"},
	"Mexico":         {"es"},
	"Argentina":      {"es"},
	"Italy":          {"it"},
	"Portugal":       {"pt"},
	"Brazil":         {"pt"},
	"Denmark":        {"da"},
	"Norway":         {"no"},
	"Sweden":         {"sv"},
	"Finland":        {"fi"},
	"Poland":         {"pl"},
	"Czechia":        {"cs"},
	"Japan":          {"ja"},
	"Korea, Republic of": {"ko"},
	"China":          {"zh"},
	"Taiwan":         {"zh"},
	"Israel":         {"he"},
	"Turkey":         {"tr"},
	"Russian Federation": {"ru"},
}

// LanguagesForCountry returns the language tags for a country name.
func LanguagesForCountry(country string) []string {
	return countryLanguages[country]
}
