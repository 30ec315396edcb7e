package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

var (
	fotocasaListingURL = regexp.MustCompile(`https://www\.fotocasa\.es/[^"'\s]+/\d+`)
	fotocasaImage      = regexp.MustCompile(`(?i)https?://static\.fotocasa\.es/images/ads/[a-f0-9-]+(?:\?[^"'\s<>]*)?`)
	fotocasaImageUUID  = regexp.MustCompile(`(?i)images/ads/([a-f0-9-]{36})`)
	fotocasaImageShape = regexp.MustCompile(`(?i)\.(?:jpg|jpeg|png|webp)|images/ads/`)
	fotocasaNotPhoto   = regexp.MustCompile(`(?i)logo|icon|avatar|favicon|placeholder|pixel|tracking|bat\.bing|loading`)
	fotocasaTitleZone  = regexp.MustCompile(`(?i)(?:en venta|en alquiler)\s+en\s+(.+)`)
	fotocasaLatitude   = []*regexp.Regexp{
		regexp.MustCompile(`"latitude"\s*:\s*(-?[\d.]+)`),
		regexp.MustCompile(`lat(?:itude)?['"]\s*:\s*(-?[\d.]+)`),
	}
	fotocasaLongitude = []*regexp.Regexp{
		regexp.MustCompile(`"longitude"\s*:\s*(-?[\d.]+)`),
		regexp.MustCompile(`(?:lng|lon(?:gitude)?)['"]\s*:\s*(-?[\d.]+)`),
	}
	fotocasaYear = []*regexp.Regexp{
		regexp.MustCompile(`(?:construido|construcci[oó]n|a[ñn]o)\s*(?:en)?\s*[:\s]*(\d{4})`),
		regexp.MustCompile(`(\d{4})\s*(?:construido|construcci[oó]n)`),
	}
)

var fotocasaPriceSelectors = []string{
	".re-DetailHeader-price",
	".re-DetailHeader-priceContainer",
	`[class*="Price"]`,
	`[class*="price"]`,
	`[data-testid="price"]`,
}

var fotocasaLocationSelectors = []string{
	".re-DetailMap-address",
	".re-DetailHeader-address",
	`[class*="Location"]`,
	`[class*="location"]`,
	`[class*="Address"]`,
	`[class*="address"]`,
}

var fotocasaAgencySelectors = []string{
	".re-DetailContactProfessional-name",
	`[class*="ContactProfessional"] a`,
	`[class*="contactProfessional"]`,
	`[class*="Agency"]`,
	`[class*="agency"]`,
	`[class*="Advertiser"]`,
	`[class*="advertiser"]`,
	`[class*="promotor"]`,
	`[class*="Promotor"]`,
}

// FotocasaPhotoKey is the picture UUID, or the URL without its query.
var FotocasaPhotoKey = extract.Keys(extract.RegexKey(fotocasaImageUUID), extract.QueryStrippedKey)

// FotocasaPhotoRewrite points a picture at the largest known render rule.
func FotocasaPhotoRewrite(url string) string {
	if m := fotocasaImageUUID.FindStringSubmatch(url); m != nil {
		return fmt.Sprintf("https://static.fotocasa.es/images/ads/%s?rule=web_948x542_ar", m[1])
	}
	return url
}

func fotocasaAcceptPhoto(url string) bool {
	return strings.Contains(url, "fotocasa") &&
		!fotocasaNotPhoto.MatchString(url) &&
		fotocasaImageShape.MatchString(url)
}

// ParseFotocasa reads a Fotocasa detail page. Features come from dt/dd
// pairs with a list-item scan as fallback; price from a selector priority
// list before a currency regex over the page text.
func ParseFotocasa(html, providedURL string, now time.Time) *models.Listing {
	doc := extract.ParseHTML(html)
	l := &models.Listing{}

	l.URL = extract.CanonicalURL(doc, providedURL, html, fotocasaListingURL)
	title := extract.FirstText(doc, "h1", ".re-DetailHeader-propertyTitle", "title")
	l.Title = extract.CollapseSpaces(title)

	l.Price = extract.First(
		func() int { return fotocasaSelectorPrice(doc) },
		func() int { return euroPriceInText(doc.TextContent()) },
	)

	address, zone := fotocasaLocation(doc, title)
	l.Address = extract.CollapseSpaces(address)
	l.Zone = zone

	var built, usable float64
	for _, row := range definitionRows(doc) {
		fotocasaApplyRow(l, row, &built, &usable)
	}
	if l.Rooms == 0 || l.Bathrooms == 0 || built == 0 {
		fotocasaFeatureItems(doc, l, &built)
	}
	l.BuiltSquareMeters = extract.Round(built)
	l.UsableSquareMeters = extract.Round(usable)

	fullText := extract.SearchText(doc.TextContent(), html)
	if !l.Terrace {
		l.Terrace = terraceWord.MatchString(fullText)
	}
	if !l.Balcony {
		l.Balcony = balconyWord.MatchString(fullText)
	}
	if !l.Elevator {
		l.Elevator = extract.HasElevator(fullText)
	}
	if !l.ParkingIncluded && !l.ParkingOptional {
		l.ParkingIncluded = parkingIncluded.MatchString(fullText)
		l.ParkingOptional = !l.ParkingIncluded && parkingOptional.MatchString(fullText)
	}
	l.NeedsRenovation = extract.DefaultRenovation.Detect(fullText)
	l.YearBuilt = extract.Year(fullText, fotocasaYear...)
	if l.Orientation == "" {
		l.Orientation = extract.Orientation(fullText)
	}
	l.DaysPublished = extract.DaysAgo(fullText)

	if m := extract.FirstSubmatch(html, fotocasaLatitude...); m != "" {
		l.Latitude = extract.CoordinateText(m, 90)
	}
	if m := extract.FirstSubmatch(html, fotocasaLongitude...); m != "" {
		l.Longitude = extract.CoordinateText(m, 180)
	}

	l.Photos = fotocasaPhotos(doc, html)

	l.Contact.Agency = fotocasaAgency(doc)
	l.Contact.Phone = extract.First(
		func() string { return extract.FirstTelLink(doc) },
		func() string { return extract.PhoneInText(fullText, extract.SpanishPhone) },
	)
	l.Contact.Email = extract.Email(fullText)
	l.Notes = descriptionText(doc, ".re-DetailDescription-text", `[class*="Description"] p`, `[class*="description"] p`)

	l.Finalize()
	return l
}

func fotocasaSelectorPrice(doc extract.Document) int {
	for _, sel := range fotocasaPriceSelectors {
		text := extract.Text(doc, sel)
		if text == "" {
			continue
		}
		// small numbers are badges or counters, not prices
		if v := extract.Round(extract.ParseLocaleNumber(text)); v > 1000 {
			return v
		}
	}
	return 0
}

func fotocasaLocation(doc extract.Document, title string) (address, zone string) {
	var parts []string
	crumbs := doc.QuerySelectorAll(`[class*="Breadcrumb"] a, [class*="breadcrumb"] a, nav[aria-label*="Breadcrumb"] a, nav[aria-label*="breadcrumb"] a, .re-Breadcrumb a, .re-Breadcrumb-link`)
	seen := map[string]bool{}
	for _, el := range crumbs {
		text := strings.TrimSpace(el.Text())
		lower := strings.ToLower(text)
		if text == "" || seen[text] || strings.Contains(lower, "fotocasa") || strings.Contains(lower, "inicio") {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", "), parts[len(parts)-1]
	}

	if m := fotocasaTitleZone.FindStringSubmatch(title); m != nil {
		segments := extract.SplitTrim(m[1], ",")
		return m[1], segments[len(segments)-1]
	}

	for _, sel := range fotocasaLocationSelectors {
		if text := extract.Text(doc, sel); text != "" {
			segments := extract.SplitTrim(text, ",")
			return text, segments[len(segments)-1]
		}
	}
	return "", ""
}

// definitionRows pairs every <dt> with the <dd> that immediately follows it.
func definitionRows(doc extract.Document) []labelValue {
	var rows []labelValue
	for _, dt := range doc.QuerySelectorAll("dt") {
		dd := dt.NextElement()
		if dd == nil || dd.Tag() != "dd" {
			continue
		}
		rows = append(rows, labelValue{label: lowerTrim(dt.Text()), value: strings.TrimSpace(dd.Text())})
	}
	return rows
}

func fotocasaApplyRow(l *models.Listing, row labelValue, built, usable *float64) {
	label, value := row.label, row.value
	valueLower := strings.ToLower(value)
	has := func(words ...string) bool { return extract.ContainsAny(label, words...) }

	switch {
	case has("habitaci", "dormitorio", "bedroom"):
		if l.Rooms == 0 {
			l.Rooms = extract.LeadingInt(value)
		}
	case has("baño", "bathroom"):
		if l.Bathrooms == 0 {
			l.Bathrooms = extract.LeadingInt(value)
		}
	case has("superficie", "m²", "tamaño", "surface"):
		v := extract.ParseLocaleNumber(value)
		if v <= 0 {
			return
		}
		switch {
		case has("útil", "usable", "neta"):
			*usable = v
		case has("construid", "built"):
			*built = v
		case *built == 0:
			*built = v
		}
	case has("planta", "floor"):
		l.Floor = value
	case has("ascensor", "elevator", "lift"):
		l.Elevator = extract.Yes(value)
	case has("terraza", "terrace"):
		l.Terrace = extract.Yes(value)
	case has("balcón", "balcon", "balcony"):
		l.Balcony = extract.Yes(value)
	case has("garaje", "parking", "aparcamiento"):
		switch {
		case strings.Contains(valueLower, "incluid"):
			l.ParkingIncluded = true
		case strings.Contains(valueLower, "opcional"):
			l.ParkingOptional = true
		case extract.Yes(value) && valueLower != "1":
			l.ParkingIncluded = true
		}
	case has("orientaci", "orientation"):
		l.Orientation = value
	}
}

func fotocasaFeatureItems(doc extract.Document, l *models.Listing, built *float64) {
	items := doc.QuerySelectorAll(`[class*="feature"] li, [class*="Feature"] li, [class*="detail"] li, [class*="Detail"] span`)
	for _, el := range items {
		text := strings.ToLower(el.Text())
		if l.Rooms == 0 && extract.ContainsAny(text, "hab", "dormitorio") {
			l.Rooms = extract.First(extract.Value(extract.LeadingInt(text)), extract.Value(extract.ParseLocaleInt(text)))
		}
		if l.Bathrooms == 0 && strings.Contains(text, "baño") {
			l.Bathrooms = extract.First(extract.Value(extract.LeadingInt(text)), extract.Value(extract.ParseLocaleInt(text)))
		}
		if *built == 0 && strings.Contains(text, "m²") {
			if v := extract.ParseLocaleNumber(text); v > 10 && v < 10000 {
				*built = v
			}
		}
	}
}

func fotocasaPhotos(doc extract.Document, html string) []string {
	photos := extract.PhotoSet{
		Key:     FotocasaPhotoKey,
		Accept:  fotocasaAcceptPhoto,
		Rewrite: FotocasaPhotoRewrite,
	}
	photos.AddAll(fotocasaImage.FindAllString(html, -1)...)

	for _, img := range doc.QuerySelectorAll("img") {
		photos.Add(extract.First(
			extract.Value(img.Attr("src")),
			extract.Value(img.Attr("data-src")),
			extract.Value(img.Attr("data-lazy")),
		))
		if srcset := img.Attr("srcset"); strings.Contains(srcset, "fotocasa") {
			photos.AddAll(extract.SrcsetURLs(srcset)...)
		}
	}
	for _, src := range doc.QuerySelectorAll("source[srcset]") {
		if srcset := src.Attr("srcset"); strings.Contains(srcset, "fotocasa") {
			photos.AddAll(extract.SrcsetURLs(srcset)...)
		}
	}
	for _, el := range doc.QuerySelectorAll(`[style*="fotocasa"]`) {
		photos.AddAll(extract.BackgroundImages(el.Attr("style"))...)
	}
	photos.Add(extract.MetaProperty(doc, "og:image"))
	return photos.Photos()
}

func fotocasaAgency(doc extract.Document) string {
	for _, sel := range fotocasaAgencySelectors {
		if text := extract.Text(doc, sel); len(text) > 1 && len(text) < 100 {
			return text
		}
	}
	for _, a := range doc.QuerySelectorAll("a") {
		href := a.Attr("href")
		text := strings.TrimSpace(a.Text())
		if extract.ContainsAny(href, "/agencia/", "/promotora/", "/professional/") && len(text) > 1 && len(text) < 100 {
			return text
		}
	}
	return ""
}
