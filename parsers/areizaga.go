package parsers

import (
	"regexp"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

var (
	areizagaTypeZone    = regexp.MustCompile(`(?i)(?:Piso|Casa|Chalet|Ático|Dúplex|Villa|Apartamento|Estudio)\s+en\s+([^\n,]+)`)
	areizagaTitleZone   = regexp.MustCompile(`(?i)en\s+([^,.]+)$`)
	areizagaBuilt       = regexp.MustCompile(`[Mm]etros\s+construidos\s*:\s*([\d.,]+)`)
	areizagaUsable      = regexp.MustCompile(`[Mm]etros\s+útiles\s*:\s*([\d.,]+)`)
	areizagaRooms       = regexp.MustCompile(`[Hh]abitaciones\s*:\s*(\d+)`)
	areizagaBathrooms   = regexp.MustCompile(`[Bb]año\w*\s*:\s*(\d+)`)
	areizagaHeight      = regexp.MustCompile(`[Aa]ltura\s+de\s+la\s+vivienda\s*:\s*(\d+)`)
	areizagaFloorText   = regexp.MustCompile(`(?i)(\d+)[ªº]?\s*planta`)
	areizagaOrientation = regexp.MustCompile(`(?i)orientación\s*:\s*(noroeste|noreste|suroeste|sureste|norte|sur|este|oeste)`)
	areizagaUpdated     = regexp.MustCompile(`[Aa]nuncio\s+actualizado\s+(?:el)?\s*:?\s*(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})`)
	areizagaImage       = regexp.MustCompile(`(?i)(?:https?:)?//img\.inmotek\.net/media/areizaga/fotos/inmuebles/[^"'\s<>]+\.(?:jpg|jpeg|png|webp)`)
	areizagaNotPhoto    = regexp.MustCompile(`(?i)logo|favicon|icon`)
	areizagaAgentSuffix = regexp.MustCompile(`\|.*`)

	areizagaYear = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:construido|construcción|año|reformad)\s*(?:en)?\s*[:\s]*(\d{4})`),
		regexp.MustCompile(`(?i)(\d{4})\s*(?:construido|construcción)`),
	}
)

var areizagaRenovation = extract.RenovationRules{
	Total:   regexp.MustCompile(`(?i)reforma\s+integral|reforma\s+total|totalmente\s+reformad`),
	Partial: extract.DefaultRenovation.Partial,
}

const areizagaDefaultAgency = "Areizaga Inmobiliaria"

func areizagaAcceptPhoto(url string) bool {
	return strings.Contains(url, "inmotek.net") && !areizagaNotPhoto.MatchString(url)
}

// ParseAreizaga reads an Areizaga (WordPress + Inmotek) property page.
// Location, agency and coordinates come from the JSON-LD @graph; the
// numeric features from dedicated spans and icon boxes.
func ParseAreizaga(html, providedURL string, now time.Time) *models.Listing {
	doc := extract.ParseHTML(html)
	ld := extract.JSONLDBlocks(doc, html)
	place := extract.FindByType(ld, "Place")
	agent := extract.FindByType(ld, "RealEstateAgent")

	var boxes []string
	for _, box := range doc.QuerySelectorAll(".web-iconbox-cont") {
		boxes = append(boxes, box.Text())
	}
	inBoxes := func(re *regexp.Regexp) string {
		for _, text := range boxes {
			if m := re.FindStringSubmatch(text); m != nil {
				return m[1]
			}
		}
		return ""
	}

	fullText := doc.InnerText()
	searchText := extract.SearchText(fullText, html)
	l := &models.Listing{}

	l.URL = extract.CanonicalURL(doc, providedURL, html)
	title := extract.FirstText(doc, "h2.single-title", "h1.single-title", "h1", "title")
	l.Title = extract.CollapseSpaces(title)

	l.Price = extract.First(
		func() int {
			for _, el := range doc.QuerySelectorAll("strong") {
				if text := el.Text(); strings.Contains(text, "€") {
					return extract.Round(extract.ParseLocaleNumber(text))
				}
			}
			return 0
		},
		func() int { return euroPriceInText(html) },
	)

	if m := areizagaTypeZone.FindStringSubmatch(fullText); m != nil {
		l.Zone = strings.TrimSpace(m[1])
	}
	if addr := extract.Obj(place, "address"); addr != nil {
		city := extract.Str(addr, "addressLocality")
		var parts []string
		for _, p := range []string{extract.Str(addr, "streetAddress"), extract.First(extract.Value(l.Zone), extract.Value(city))} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		l.Address = strings.Join(parts, ", ")
		if l.Zone == "" {
			l.Zone = city
		}
	}
	if l.Zone == "" {
		if m := areizagaTitleZone.FindStringSubmatch(title); m != nil {
			l.Zone = strings.TrimSpace(m[1])
		}
	}
	l.Address = extract.CollapseSpaces(l.Address)

	l.UsableSquareMeters = extract.First(
		func() int { return extract.Round(extract.ParseLocaleNumber(extract.Text(doc, "span.metros-utiles"))) },
		func() int { return extract.Round(extract.ParseLocaleNumber(inBoxes(areizagaUsable))) },
	)
	l.BuiltSquareMeters = extract.Round(extract.ParseLocaleNumber(inBoxes(areizagaBuilt)))

	l.Rooms = extract.First(
		func() int { return areizagaCount(extract.Text(doc, "span.numero-habitaciones")) },
		func() int { return extract.Atoi(inBoxes(areizagaRooms)) },
	)
	l.Bathrooms = extract.First(
		func() int { return areizagaCount(extract.Text(doc, "span.numero-banos")) },
		func() int { return extract.Atoi(inBoxes(areizagaBathrooms)) },
	)

	if n := extract.First(func() string { return inBoxes(areizagaHeight) }, extract.Submatch(areizagaFloorText, fullText)); n != "" {
		l.Floor = "Planta " + n
	}

	l.Orientation = extract.First(
		func() string { return extract.Capitalize(strings.ToLower(inBoxes(areizagaOrientation))) },
		func() string { return extract.Orientation(fullText) },
	)
	l.YearBuilt = extract.Year(fullText, areizagaYear...)

	l.Terrace = terraceWord.MatchString(searchText)
	l.Balcony = balconyWord.MatchString(searchText)
	l.Elevator = extract.HasElevator(searchText)
	for _, text := range boxes {
		// a bare "Ascensor" box lists the feature
		if lowerTrim(text) == "ascensor" {
			l.Elevator = true
		}
	}
	l.ParkingIncluded = parkingIncluded.MatchString(searchText)
	l.ParkingOptional = !l.ParkingIncluded && parkingOptional.MatchString(searchText)
	l.NeedsRenovation = areizagaRenovation.Detect(searchText)

	if m := areizagaUpdated.FindStringSubmatch(fullText); m != nil {
		if updated, ok := extract.DateDMY(extract.Atoi(m[1]), extract.Atoi(m[2]), extract.Atoi(m[3]), now.Location()); ok {
			l.DaysPublished = extract.DaysSince(updated, now)
		}
	}

	if geo := extract.Obj(place, "geo"); geo != nil {
		l.Latitude = jsonCoordinate(geo["latitude"], 90)
		l.Longitude = jsonCoordinate(geo["longitude"], 180)
	}

	photos := extract.PhotoSet{
		Key:     extract.QueryStrippedKey,
		Accept:  areizagaAcceptPhoto,
		Rewrite: extract.AbsoluteScheme,
	}
	for _, img := range doc.QuerySelectorAll("a.web-gallery-item img, img") {
		photos.Add(extract.First(extract.Value(img.Attr("src")), extract.Value(img.Attr("data-src"))))
	}
	if photos.Len() == 0 {
		photos.AddAll(areizagaImage.FindAllString(html, -1)...)
	}
	l.Photos = photos.Photos()

	l.Contact.Agency = extract.First(
		func() string {
			return strings.TrimSpace(areizagaAgentSuffix.ReplaceAllString(extract.Str(agent, "name"), ""))
		},
		extract.Value(areizagaDefaultAgency),
	)
	l.Contact.Email = extract.Str(agent, "email")
	if phones := extract.TelLinks(doc); len(phones) > 0 {
		l.Contact.Phone = phones[0]
		if len(phones) > 1 {
			l.Contact.Phone2 = phones[1]
		}
	}

	if desc := extract.Str(place, "description"); len(desc) > 30 {
		l.Notes = strings.TrimSpace(desc)
	} else {
		l.Notes = descriptionText(doc, ".entry-content p, .post-content p, .web-description p, .web-description")
	}

	l.Finalize()
	return l
}

// areizagaCount reads "3" or "3 hab." and falls back to the first number.
func areizagaCount(text string) int {
	return extract.First(extract.Value(extract.LeadingInt(text)), extract.Value(extract.ParseLocaleInt(text)))
}

// jsonCoordinate accepts a JSON number or numeric string.
func jsonCoordinate(v any, limit float64) *float64 {
	switch t := v.(type) {
	case float64:
		return extract.Coordinate(t, limit)
	case string:
		return extract.CoordinateText(t, limit)
	}
	return nil
}
