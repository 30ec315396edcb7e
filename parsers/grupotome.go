package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

// Inmovilla CRM pages assign the listing to a global:
//
//	listados.fichapropiedad = [{pagination}, {listing}];
//
// The payload is hand-templated and is not always valid JSON.
var (
	inmovillaStrict   = regexp.MustCompile(`listados\.fichapropiedad\s*=\s*\[([^\]]*\{[\s\S]*?\})\s*\]`)
	inmovillaRecovery = regexp.MustCompile(`listados\.fichapropiedad\s*=\s*\[[\s\S]*?,\s*(\{[\s\S]*?"precioinmo"[\s\S]*?\})\s*,?\s*\]`)
	trailingComma     = regexp.MustCompile(`,(\s*[}\]])`)
	apinmoImage       = regexp.MustCompile(`(?i)https?://fotos\d+\.apinmo\.com/[^"'\s<>]+\.(?:jpg|jpeg|png|webp)`)
	apinmoThumbnail   = regexp.MustCompile(`-\d+s\.`)
)

const grupoTomeDefaultAgency = "Grupo Tomé"

// maxInmovillaPhotos bounds a constructed gallery. Larger counts are
// treated as corrupt and left to CDN discovery.
const maxInmovillaPhotos = 500

// decodeLoose decodes JSON, retrying once with trailing commas removed.
func decodeLoose(s string, v any) error {
	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	if err2 := json.Unmarshal([]byte(trailingComma.ReplaceAllString(s, "$1")), v); err2 == nil {
		return nil
	}
	return err
}

// InmovillaListing extracts the listing object from an Inmovilla page, or
// nil. The strict array form is tried first; the recovery pattern grabs
// the object holding "precioinmo" directly when the array will not decode.
func InmovillaListing(html string) extract.Object {
	if m := inmovillaStrict.FindStringSubmatch(html); m != nil {
		var arr []any
		if err := decodeLoose("["+m[1]+"]", &arr); err == nil && len(arr) > 0 {
			// first element is pagination metadata
			item := arr[0]
			if len(arr) > 1 {
				item = arr[1]
			}
			if obj, ok := item.(extract.Object); ok && len(obj) > 0 {
				return obj
			}
		}
	}
	if m := inmovillaRecovery.FindStringSubmatch(html); m != nil {
		var obj extract.Object
		if err := decodeLoose(m[1], &obj); err == nil && len(obj) > 0 {
			return obj
		}
	}
	return nil
}

// InmovillaPhotos builds the gallery URLs from the numeric photo fields.
// It returns nil unless every field is present and non-zero.
func InmovillaPhotos(data extract.Object) []string {
	count := extract.Round(extract.AsFloat(data["numfotos"]))
	letter := extract.Str(data, "fotoletra")
	server := extract.Str(data, "srvfotos")
	agency := extract.Str(data, "numagencia")
	offer := extract.Str(data, "cod_ofer")
	for _, v := range []string{letter, server, agency, offer} {
		if v == "" || v == "0" {
			return nil
		}
	}
	if count <= 0 || count > maxInmovillaPhotos {
		return nil
	}
	photos := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		photos = append(photos, fmt.Sprintf("https://fotos%s.apinmo.com/%s/%s/%s-%d.jpg", server, agency, offer, letter, i))
	}
	return photos
}

// ParseGrupoTome reads a Grupo Tomé (Inmovilla) property page.
func ParseGrupoTome(html, providedURL string, now time.Time) *models.Listing {
	doc := extract.ParseHTML(html)
	data := InmovillaListing(html)
	num := func(key string) float64 { return extract.AsFloat(data[key]) }
	rows := inmovillaRows(doc)
	row := func(words ...string) string {
		for _, r := range rows {
			if extract.ContainsAny(r.label, words...) {
				return r.value
			}
		}
		return ""
	}

	l := &models.Listing{}
	l.URL = extract.CanonicalURL(doc, providedURL, html)
	l.Price = extract.First(
		func() int { return extract.Round(num("precioinmo")) },
		func() int { return extract.Round(extract.ParseLocaleNumber(extract.Text(doc, ".fichapropiedad-precio"))) },
	)
	l.Title = extract.CollapseSpaces(extract.FirstText(doc, ".fichapropiedad-tituloprincipal h1", "h1", "title"))

	if zona, ciudad := extract.Str(data, "zona"), extract.Str(data, "ciudad"); zona != "" && ciudad != "" {
		l.Zone = zona
		l.Address = zona + ", " + ciudad
	} else if v := row("zona", "ciudad"); v != "" {
		// "Añorga / Donostia - San Sebastian"
		l.Address = v
		l.Zone = extract.SplitTrim(v, "/")[0]
	}
	l.Address = extract.CollapseSpaces(l.Address)

	l.BuiltSquareMeters = extract.First(
		func() int { return extract.Round(num("m_cons")) },
		func() int { return extract.Round(extract.ParseLocaleNumber(row("construida"))) },
	)
	l.UsableSquareMeters = extract.First(
		func() int { return extract.Round(num("m_uties")) },
		func() int { return extract.Round(extract.ParseLocaleNumber(row("útil"))) },
	)

	l.Rooms = extract.First(
		func() int { return extract.Round(num("total_hab")) },
		func() int { return extract.Round(num("habdobles")) },
		func() int { return extract.LeadingInt(row("habitacion")) },
		func() int { return extract.LeadingInt(extract.Text(doc, ".fichapropiedad-caracteristicastitulo .habitaciones")) },
	)
	l.Bathrooms = extract.First(
		func() int { return extract.Round(num("banyosauto")) },
		func() int { return extract.Round(num("banyos")) },
		func() int { return extract.LeadingInt(row("baño")) },
		func() int { return extract.LeadingInt(extract.Text(doc, ".fichapropiedad-caracteristicastitulo .banyos")) },
	)
	l.Floor = extract.First(
		func() string { return extract.Str(data, "nbtipo") },
		func() string { return row("tipo de propiedad", "planta") },
	)
	l.YearBuilt = extract.First(
		func() int { return extract.Round(num("antiguedad")) },
		func() int { return extract.LeadingInt(row("antigüedad", "antiguedad")) },
	)
	l.Orientation = extract.First(
		func() string { return extract.Str(data, "nborientacion") },
		func() string { return row("orientación", "orientacion") },
	)

	qualities := map[string]bool{}
	for _, el := range doc.QuerySelectorAll(".fichapropiedad-listacalidades .etiqueta") {
		qualities[lowerTrim(el.Text())] = true
	}
	l.Terrace = num("terraza") == 1 || qualities["terraza"]
	l.Elevator = num("ascensor") == 1 || qualities["ascensor"]
	l.Balcony = qualities["balcón"] || qualities["balcon"]
	l.ParkingIncluded = num("plaza_gara") > 0 || num("total_parking") > 0 || qualities["garaje incluido"]
	l.ParkingOptional = !l.ParkingIncluded && (qualities["garaje opcional"] || qualities["parking opcional"])

	fullText := extract.SearchText(doc.TextContent(), html)
	l.NeedsRenovation = extract.DefaultRenovation.Detect(fullText)

	// Inmovilla stores longitude under "altitud"
	if lat := num("latitud"); lat != 0 {
		l.Latitude = extract.Coordinate(lat, 90)
	}
	if lng := num("altitud"); lng != 0 {
		l.Longitude = extract.Coordinate(lng, 180)
	}

	if photos := InmovillaPhotos(data); photos != nil {
		l.Photos = photos
	} else {
		set := extract.PhotoSet{
			Accept: func(u string) bool { return !apinmoThumbnail.MatchString(u) },
		}
		set.AddAll(apinmoImage.FindAllString(html, -1)...)
		l.Photos = set.Photos()
	}

	l.Contact.Agency = extract.First(
		func() string { return extract.Str(data, "agencia") },
		extract.TextOf(doc, ".datosagencia-nombre"),
		extract.Value(grupoTomeDefaultAgency),
	)
	l.Contact.Phone = extract.First(
		func() string { return extract.Str(data, "telefono") },
		func() string { return extract.StripSpaces(extract.Text(doc, ".datosagencia-telf")) },
	)
	l.Contact.Email = extract.Str(data, "email")

	l.DaysPublished = extract.DaysSinceTimestamp(extract.Str(data, "fechacreacion"), now)
	l.Notes = descriptionText(doc,
		".fichapropiedad-texto p", ".fichapropiedad-texto",
		".fichapropiedad-descripcion p", ".fichapropiedad-descripcion")

	l.Finalize()
	return l
}

// inmovillaRows reads the label/value list of the property sheet.
func inmovillaRows(doc extract.Document) []labelValue {
	var rows []labelValue
	for _, li := range doc.QuerySelectorAll(".fichapropiedad-listadatos li") {
		var label, value string
		if el := li.QuerySelector(".caracteristica"); el != nil {
			label = lowerTrim(el.Text())
		}
		if el := li.QuerySelector(".valor"); el != nil {
			value = strings.TrimSpace(el.Text())
		}
		rows = append(rows, labelValue{label: label, value: value})
	}
	return rows
}
