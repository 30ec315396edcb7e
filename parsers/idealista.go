package parsers

import (
	"regexp"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

var (
	idealistaListingURL = regexp.MustCompile(`https://www\.idealista\.com/inmueble/\d+/?`)
	idealistaImage      = regexp.MustCompile(`(?i)https?://img\d*\.idealista\.com/[^"'\s<>]+\.(?:jpg|jpeg|png|webp)`)
	idealistaImageID    = regexp.MustCompile(`(?i)/(\d{8,})\.(?:jpg|jpeg|png|webp)`)
	idealistaFloorMark  = regexp.MustCompile(`\d+º`)
	idealistaFloorKeep  = regexp.MustCompile(`[^\dºª\s]`)
	idealistaDays       = regexp.MustCompile(`(\d+)\s*día`)
	idealistaPhoneBlock = regexp.MustCompile(`(\d[\d\s]{8,})`)
	idealistaLatitude   = regexp.MustCompile(`latitude\s*:\s*['"]?(-?\d+\.\d+)`)
	idealistaLongitude  = regexp.MustCompile(`longitude\s*:\s*['"]?(-?\d+\.\d+)`)

	idealistaYear = []*regexp.Regexp{
		regexp.MustCompile(`(?i)construido en (\d{4})`),
		regexp.MustCompile(`(?i)año de construcción[:\s]*(\d{4})`),
		regexp.MustCompile(`(?i)antigüedad[:\s]*(\d{4})`),
	}
	idealistaScriptPhonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"phone"\s*:\s*"(\d+)"`),
		regexp.MustCompile(`"phoneNumber"\s*:\s*"(\d+)"`),
		regexp.MustCompile(`(?i)phone['"]\s*:\s*['"]([\d\s]+)['"]`),
	}
)

// IdealistaPhotoRewrite upgrades an Idealista CDN URL to the detail size.
func IdealistaPhotoRewrite(url string) string {
	url = strings.ReplaceAll(url, "WEB_LISTING", "WEB_DETAIL")
	url = strings.ReplaceAll(url, "WEB_DETAIL_TOP", "WEB_DETAIL")
	url = strings.ReplaceAll(url, "/S/", "/L/")
	return strings.ReplaceAll(url, "/M/", "/L/")
}

var idealistaNotPhoto = extract.Blocklisted("logo", "icon", "avatar", "profilephotos", "loading")

// IdealistaPhotoKey is the numeric picture id in the file name.
var IdealistaPhotoKey = extract.RegexKey(idealistaImageID)

// ParseIdealista reads an Idealista detail page. Idealista publishes no
// structured data worth trusting, so fields come from markup classes and
// full-text keywords; photos come from CDN URLs anywhere in the page.
func ParseIdealista(html, providedURL string, now time.Time) *models.Listing {
	doc := extract.ParseHTML(html)
	l := &models.Listing{}

	l.URL = extract.CanonicalURL(doc, providedURL, html, idealistaListingURL)
	l.Price = extract.ParseLocaleInt(extract.FirstText(doc, ".info-data-price", `[class*="price"]`))
	l.Title = extract.CollapseSpaces(extract.FirstText(doc, ".main-info__title-main", "h1", ".detail-title"))

	address := extract.FirstText(doc, ".main-info__title-minor", ".header-map-list")
	l.Address = extract.CollapseSpaces(address)
	l.Zone = extract.SplitTrim(address, ",")[0]

	idealistaFeatures(doc, l)

	fullText := extract.SearchText(doc.InnerText(), html)
	l.Terrace = strings.Contains(fullText, "terraza")
	l.Balcony = extract.ContainsAny(fullText, "balcón", "balcon")
	l.Elevator = extract.HasElevator(fullText)
	l.ParkingIncluded = extract.ContainsAny(fullText, "garaje incluido", "plaza de garaje incluida")
	l.ParkingOptional = strings.Contains(fullText, "garaje opcional") ||
		(strings.Contains(fullText, "garaje") && !l.ParkingIncluded)
	l.NeedsRenovation = extract.DefaultRenovation.Detect(fullText)
	l.YearBuilt = extract.Year(fullText, idealistaYear...)
	l.Orientation = extract.Orientation(fullText)

	l.DaysPublished = extract.First(
		func() int {
			if m := idealistaDays.FindStringSubmatch(extract.Text(doc, ".stats-text")); m != nil {
				return extract.Atoi(m[1])
			}
			return 0
		},
		func() int { return extract.DaysAgo(fullText) },
	)

	if m := idealistaLatitude.FindStringSubmatch(html); m != nil {
		l.Latitude = extract.CoordinateText(m[1], 90)
	}
	if m := idealistaLongitude.FindStringSubmatch(html); m != nil {
		l.Longitude = extract.CoordinateText(m[1], 180)
	}

	photos := extract.PhotoSet{
		Key: IdealistaPhotoKey,
		Accept: func(u string) bool {
			return strings.Contains(u, "idealista.com") &&
				idealistaNotPhoto(u)
		},
		Rewrite: IdealistaPhotoRewrite,
	}
	photos.AddAll(idealistaImage.FindAllString(html, -1)...)
	photos.AddAll(extract.ImageAttrs(doc)...)
	photos.AddAll(extract.SourceSrcsets(doc)...)
	l.Photos = photos.Photos()

	l.Contact.Phone = extract.First(
		func() string { return extract.FirstTelLink(doc) },
		func() string { return idealistaPhoneContainer(doc) },
		func() string { return extract.PhoneInText(html, extract.SpanishPhone, extract.GroupedPhone) },
		func() string { return idealistaScriptPhone(doc) },
	)
	l.Contact.Agency = extract.Text(doc, `.professional-name a, .advertiser-name, [class*="professional"] .name, .owner-name`)
	l.Notes = descriptionText(doc, ".comment p", ".adCommentsLanguage")

	l.Finalize()
	return l
}

func idealistaFeatures(doc extract.Document, l *models.Listing) {
	generic := 0
	items := doc.QuerySelectorAll(".info-features span, .info-data span, .details-property_features li, .details-property li")
	for _, item := range items {
		text := strings.ToLower(item.Text())

		if strings.Contains(text, "m²") || strings.Contains(text, "m2") {
			v := extract.ParseLocaleInt(text)
			switch {
			case strings.Contains(text, "construid"):
				if l.BuiltSquareMeters == 0 {
					l.BuiltSquareMeters = v
				}
			case strings.Contains(text, "útil"):
				if l.UsableSquareMeters == 0 {
					l.UsableSquareMeters = v
				}
			case generic == 0:
				generic = v
			}
		}
		if l.Rooms == 0 && (strings.Contains(text, "hab") || strings.Contains(text, "dormitorio")) {
			l.Rooms = extract.ParseLocaleInt(text)
		}
		if l.Bathrooms == 0 && strings.Contains(text, "baño") {
			l.Bathrooms = extract.ParseLocaleInt(text)
		}
		if l.Floor == "" && (strings.Contains(text, "planta") || idealistaFloorMark.MatchString(text)) {
			l.Floor = strings.TrimSpace(idealistaFloorKeep.ReplaceAllString(text, ""))
		}
	}
	// an unqualified surface is the built surface
	if l.BuiltSquareMeters == 0 {
		l.BuiltSquareMeters = generic
	}
}

func idealistaPhoneContainer(doc extract.Document) string {
	for _, el := range doc.QuerySelectorAll(`.phone-btn, .phone-number, [class*="phone"], [class*="contact-phones"]`) {
		m := idealistaPhoneBlock.FindStringSubmatch(el.Text())
		if m == nil {
			continue
		}
		if p := extract.StripSpaces(m[1]); len(p) >= 9 && len(p) <= 12 {
			return p
		}
	}
	return ""
}

func idealistaScriptPhone(doc extract.Document) string {
	for _, s := range doc.QuerySelectorAll("script") {
		if m := extract.FirstSubmatch(s.Text(), idealistaScriptPhonePatterns...); m != "" {
			return extract.StripSpaces(m)
		}
	}
	return ""
}
