package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Country returns a strategy extracting a geographic coverage entry. The ISO
// code is read from codeAttr; when codeAttr is empty the element text is
// the code. Elements with neither a code nor a name are dropped.
func Country(codeAttr string) Strategy[cmm.Country] {
	return func(node *xmlquery.Node, _ Reporter) (cmm.Country, bool) {
		var country cmm.Country
		if codeAttr == "" {
			country.ISOCode = Text(node)
		} else {
			country.ISOCode = cleanXMLText(Attr(node, codeAttr))
			country.CountryName = Text(node)
		}
		country = EnrichCountry(country, Lang(node))
		if country.ISOCode == "" && country.CountryName == "" {
			return cmm.Country{}, false
		}
		return country, true
	}
}

// EnrichCountry normalises the ISO code and names the country in the given
// language using the CLDR display tables. Codes that are not recognised
// keep the extracted name, or the code itself when there is none.
func EnrichCountry(country cmm.Country, lang string) cmm.Country {
	code := strings.ToUpper(strings.TrimSpace(country.ISOCode))
	country.ISOCode = code
	if code == "" {
		return country
	}

	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() || region.String() == "ZZ" {
		if country.CountryName == "" {
			country.CountryName = code
		}
		return country
	}

	if name := regionName(region, lang); name != "" {
		country.CountryName = name
	} else if country.CountryName == "" {
		country.CountryName = code
	}
	return country
}

func regionName(region language.Region, lang string) string {
	namer := display.English.Regions()
	if lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			if localized := display.Regions(tag); localized != nil {
				namer = localized
			}
		}
	}
	if name := namer.Name(region); name != "" {
		return name
	}
	return display.English.Regions().Name(region)
}
