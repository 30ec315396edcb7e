package parsers

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"hogar_scrooper/extract"
	"hogar_scrooper/models"
)

// Engel & Völkers pages are Next.js apps; the dehydrated react-query state
// carries the whole listing, so JSON-LD and regex are fallbacks only.

type evMinMax struct {
	max, min *float64
}

// UnmarshalJSON accepts {"min":..,"max":..} with numbers or numeric
// strings and ignores anything else rather than failing the listing.
func (m *evMinMax) UnmarshalJSON(b []byte) error {
	var raw struct {
		Max json.RawMessage `json:"max"`
		Min json.RawMessage `json:"min"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	m.max = flexFloat(raw.Max)
	m.min = flexFloat(raw.Min)
	return nil
}

// value prefers max, then min.
func (m *evMinMax) value() float64 {
	switch {
	case m == nil:
		return 0
	case m.max != nil:
		return *m.max
	case m.min != nil:
		return *m.min
	}
	return 0
}

func flexFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil
	}
	switch v.(type) {
	case float64, string:
		f := extract.AsFloat(v)
		return &f
	}
	return nil
}

// evNumber is a number that may arrive as a numeric string.
type evNumber float64

func (n *evNumber) UnmarshalJSON(b []byte) error {
	if f := flexFloat(b); f != nil {
		*n = evNumber(*f)
	}
	return nil
}

// evText is a string that may arrive as a number.
type evText string

func (t *evText) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		*t = evText(x)
	case float64:
		*t = evText(strconv.FormatFloat(x, 'f', -1, 64))
	}
	return nil
}

// evBool records whether the flag was published at all.
type evBool struct {
	set, value bool
}

func (f *evBool) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case bool:
		f.set, f.value = true, x
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			f.set, f.value = true, parsed
		}
	}
	return nil
}

// evList decodes element by element and drops the ones that do not fit.
type evList[T any] []T

func (l *evList[T]) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, r := range raw {
		var v T
		if evDecode(r, &v) {
			*l = append(*l, v)
		}
	}
	return nil
}

// evDecode keeps a partial result when the only problems are type
// mismatches; encoding/json skips those fields and decodes the rest.
func evDecode(b []byte, v any) bool {
	err := json.Unmarshal(b, v)
	var typeErr *json.UnmarshalTypeError
	return err == nil || errors.As(err, &typeErr)
}

type evImage struct {
	ID       evText    `json:"id"`
	Position *evNumber `json:"position"`
	Type     evText    `json:"type"`
}

func (i evImage) position() float64 {
	if i.Position == nil {
		return 0
	}
	return float64(*i.Position)
}

type evPrice struct {
	SalesPrice *evMinMax `json:"salesPrice"`
}

type evListing struct {
	PropertyImages     evList[evImage] `json:"propertyImages"`
	FloorPlanImages    evList[evImage] `json:"floorPlanImages"`
	UploadCareImageIDs evList[evText]  `json:"uploadCareImageIds"`
	Area               *struct {
		UsableSurface *evMinMax `json:"usableSurface"`
		TotalSurface  *evMinMax `json:"totalSurface"`
		LivingSurface *evMinMax `json:"livingSurface"`
	} `json:"area"`
	Price            *evPrice  `json:"price"`
	BasePrice        *evPrice  `json:"basePrice"`
	Rooms            *evMinMax `json:"rooms"`
	Bedrooms         *evMinMax `json:"bedrooms"`
	Bathrooms        *evMinMax `json:"bathrooms"`
	Floor            *evMinMax `json:"floor"`
	ConstructionYear *evMinMax `json:"constructionYear"`
	Condition        evText    `json:"condition"`
	HasBalcony       evBool    `json:"hasBalcony"`
	HasTerrace       evBool    `json:"hasTerrace"`
	DisplayLat       evNumber  `json:"displayLat"`
	DisplayLng       evNumber  `json:"displayLng"`
	PublishedAt      evText    `json:"publishedAt"`
	ShopName         evText    `json:"shopName"`
	ShopPhoneNumber  evText    `json:"shopPhoneNumber"`
	ShopEmail        evText    `json:"shopEmail"`
	Agent            *struct {
		Name  evText `json:"name"`
		Email evText `json:"email"`
	} `json:"agent"`
}

type evNextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries evList[evQuery] `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

type evQuery struct {
	QueryKey json.RawMessage `json:"queryKey"`
	State    struct {
		Data struct {
			Listing json.RawMessage `json:"listing"`
		} `json:"data"`
	} `json:"state"`
}

// isListing reports whether the query key is ["listing", ...].
func (q evQuery) isListing() bool {
	var key []any
	if err := json.Unmarshal(q.QueryKey, &key); err != nil || len(key) == 0 {
		return false
	}
	return key[0] == "listing"
}

var (
	evNextDataScript = regexp.MustCompile(`<script[^>]*id=["']__NEXT_DATA__["'][^>]*>([\s\S]*?)</script>`)
	evSalesPriceRaw  = regexp.MustCompile(`"salesPrice"\s*:\s*\{[^}]*"max"\s*:\s*(\d+)`)
	evSurface        = regexp.MustCompile(`(\d[\d.,]*)\s*m[²2]`)
	evRooms          = regexp.MustCompile(`(?i)(\d+)\s*(?:habitaci|dormitorio|bedroom)`)
	evBathrooms      = regexp.MustCompile(`(?i)(\d+)\s*(?:baño|bathroom)`)
	evYear           = regexp.MustCompile(`(?:construido|construcci[oó]n|built)\s*(?:en)?\s*[:\s]*(\d{4})`)
	evShopCity       = regexp.MustCompile(`(?i)Engel\s*&\s*Völkers\s+(.+?)(?:\s+MMC|\s+MC)?$`)
	evStreet         = regexp.MustCompile(`(?i)(?:calle|c/|avenida|avda|plaza|paseo)\s+[^,.]+`)
	evTerrace        = regexp.MustCompile(`(?i)\b(?:terraza|terrace)\b`)
	evBalcony        = regexp.MustCompile(`(?i)\b(?:balc(?:o|ó)n|balcony)\b`)
	evElevator       = regexp.MustCompile(`(?i)\b(?:ascensor|elevator|lift)\b`)
	evNoElevator     = regexp.MustCompile(`(?i)sin\s+ascensor`)
	evParkingIncl    = regexp.MustCompile(`(?i)garaje\s*incluid|parking\s*incluid|plaza.*incluid`)
	evParkingOpt     = regexp.MustCompile(`(?i)garaje\s*opcional|parking\s*opcional`)
	evLat            = regexp.MustCompile(`"displayLat"\s*:\s*(-?[\d.]+)`)
	evLng            = regexp.MustCompile(`"displayLng"\s*:\s*(-?[\d.]+)`)
	evUUIDArray      = regexp.MustCompile(`"uploadCareImageIds"\s*:\s*\[([\s\S]*?)\]`)
	evOffice         = regexp.MustCompile(`(?i)engel\s*[&+]\s*v[öo]lkers\s+([^"'<]+?)["'|<]`)
)

var evRenovation = extract.RenovationRules{
	Total:   regexp.MustCompile(`(?i)reforma\s+integral|reforma\s+total|fully\s+renovated`),
	Partial: extract.DefaultRenovation.Partial,
}

const evDefaultAgency = "Engel & Völkers"

// EngelVolkersPhotoURL renders an uploadcare image id at gallery size.
func EngelVolkersPhotoURL(uuid string) string {
	return "https://uploadcare.engelvoelkers.com/" + uuid + "/-/resize/1200x/"
}

func evExtractListing(doc extract.Document, html string) *evListing {
	raw := extract.First(
		func() string { return extract.Text(doc, "script#__NEXT_DATA__") },
		extract.Submatch(evNextDataScript, html),
	)
	if raw == "" {
		return nil
	}
	var data evNextData
	if !evDecode([]byte(raw), &data) {
		return nil
	}
	for _, q := range data.Props.PageProps.DehydratedState.Queries {
		if !q.isListing() {
			continue
		}
		var l evListing
		if !evDecode(q.State.Data.Listing, &l) {
			return nil
		}
		return &l
	}
	return nil
}

// ParseEngelVolkers reads an Engel & Völkers exposé page.
func ParseEngelVolkers(html, providedURL string, now time.Time) *models.Listing {
	doc := extract.ParseHTML(html)
	listing := evExtractListing(doc, html)
	hasListing := listing != nil
	if listing == nil {
		listing = &evListing{}
	}

	ld := extract.JSONLDBlocks(doc, html)
	product := extract.FindByType(ld, "Product")
	realEstate := extract.FindByType(ld, "RealEstateListing")
	breadcrumb := extract.FindByType(ld, "BreadcrumbList")

	searchText := extract.SearchText(doc.TextContent(), html)
	l := &models.Listing{}

	l.URL = extract.CanonicalURL(doc, providedURL, html)
	l.Title = extract.CollapseSpaces(extract.First(
		func() string { return extract.Str(product, "name") },
		func() string { return extract.Str(realEstate, "name") },
		func() string { return extract.MetaProperty(doc, "og:title") },
		extract.TextOf(doc, "h1"),
	))

	l.Price = extract.First(
		func() int { return extract.Round(evSalesPrice(listing).value()) },
		func() int { return evOfferPrice(product) },
		func() int { return extract.Atoi(extract.Submatch(evSalesPriceRaw, html)()) },
	)

	var built, usable float64
	if listing.Area != nil {
		built = listing.Area.TotalSurface.value()
		usable = listing.Area.UsableSurface.value()
		if usable == 0 {
			usable = listing.Area.LivingSurface.value()
		}
	}
	if built == 0 && usable == 0 {
		if m := evSurface.FindStringSubmatch(searchText); m != nil {
			if v := extract.ParseLocaleNumber(m[1]); v > 10 && v < 10000 {
				built = v
			}
		}
	}
	l.BuiltSquareMeters = extract.Round(built)
	l.UsableSquareMeters = extract.Round(usable)

	l.Rooms = extract.First(
		func() int { return extract.Round(listing.Bedrooms.value()) },
		func() int { return extract.Round(listing.Rooms.value()) },
		func() int { return extract.Atoi(extract.Submatch(evRooms, searchText)()) },
	)
	l.Bathrooms = extract.First(
		func() int { return extract.Round(listing.Bathrooms.value()) },
		func() int { return extract.Atoi(extract.Submatch(evBathrooms, searchText)()) },
	)
	if listing.Floor != nil {
		l.Floor = strconv.FormatFloat(listing.Floor.value(), 'f', -1, 64)
	}

	l.YearBuilt = extract.First(
		func() int {
			if y := extract.Round(listing.ConstructionYear.value()); extract.InYearRange(y) {
				return y
			}
			return 0
		},
		func() int { return extract.Year(searchText, evYear) },
	)

	l.Address, l.Zone = evLocation(doc, listing, breadcrumb)
	l.Address = extract.CollapseSpaces(l.Address)

	l.Terrace = evFlag(listing.HasTerrace, evTerrace, searchText)
	l.Balcony = evFlag(listing.HasBalcony, evBalcony, searchText)
	l.Elevator = evElevator.MatchString(searchText) && !evNoElevator.MatchString(searchText)
	l.ParkingIncluded = evParkingIncl.MatchString(searchText)
	l.ParkingOptional = !l.ParkingIncluded && evParkingOpt.MatchString(searchText)
	l.Orientation = extract.Orientation(searchText)

	cond := strings.ToLower(string(listing.Condition))
	if strings.Contains(cond, "renovate") || strings.Contains(cond, "refurbish") {
		l.NeedsRenovation = models.RenovationTotal
	} else {
		l.NeedsRenovation = evRenovation.Detect(searchText)
	}

	published := extract.First(
		extract.Value(string(listing.PublishedAt)),
		func() string { return extract.Str(realEstate, "datePosted") },
	)
	l.DaysPublished = extract.DaysSinceTimestamp(published, now)

	if listing.DisplayLat != 0 && listing.DisplayLng != 0 {
		l.Latitude = extract.Coordinate(float64(listing.DisplayLat), 90)
		l.Longitude = extract.Coordinate(float64(listing.DisplayLng), 180)
	} else {
		if m := evLat.FindStringSubmatch(html); m != nil {
			l.Latitude = extract.CoordinateText(m[1], 90)
		}
		if m := evLng.FindStringSubmatch(html); m != nil {
			l.Longitude = extract.CoordinateText(m[1], 180)
		}
	}

	l.Photos = evPhotos(doc, html, listing, hasListing, product, realEstate)

	l.Contact.Phone = extract.First(
		func() string { return extract.StripSpaces(string(listing.ShopPhoneNumber)) },
		func() string { return extract.FirstTelLink(doc) },
	)
	l.Contact.Email = string(listing.ShopEmail)
	if listing.Agent != nil {
		l.Contact.Name = string(listing.Agent.Name)
		if l.Contact.Email == "" {
			l.Contact.Email = string(listing.Agent.Email)
		}
	}
	l.Contact.Agency = extract.First(extract.Value(string(listing.ShopName)), extract.Value(evDefaultAgency))
	if l.Contact.Agency == evDefaultAgency {
		if m := evOffice.FindStringSubmatch(html); m != nil {
			l.Contact.Agency = evDefaultAgency + " " + strings.TrimSpace(m[1])
		}
	}

	desc := extract.First(
		func() string { return extract.Str(product, "description") },
		func() string { return extract.Str(realEstate, "description") },
	)
	if len(desc) > 30 {
		l.Notes = strings.TrimSpace(desc)
	} else {
		l.Notes = extract.MetaProperty(doc, "og:description")
	}

	l.Finalize()
	return l
}

func evSalesPrice(l *evListing) *evMinMax {
	if l.Price != nil && l.Price.SalesPrice != nil {
		return l.Price.SalesPrice
	}
	if l.BasePrice != nil {
		return l.BasePrice.SalesPrice
	}
	return nil
}

// evOfferPrice reads Product.offers.price; offers may be an object or a list.
func evOfferPrice(product extract.Object) int {
	offer := extract.Obj(product, "offers")
	if offer == nil {
		if list := extract.Objects(product, "offers"); len(list) > 0 {
			offer = list[0]
		}
	}
	if offer == nil {
		return 0
	}
	switch v := offer["price"].(type) {
	case float64:
		return extract.Round(v)
	case string:
		return extract.Round(extract.ParseLocaleNumber(v))
	}
	return 0
}

func evLocation(doc extract.Document, listing *evListing, breadcrumb extract.Object) (address, zone string) {
	if m := evShopCity.FindStringSubmatch(string(listing.ShopName)); m != nil {
		address = strings.TrimSpace(m[1])
	}

	items := extract.Objects(breadcrumb, "itemListElement")
	sort.SliceStable(items, func(i, j int) bool {
		return extract.AsFloat(items[i]["position"]) < extract.AsFloat(items[j]["position"])
	})
	var names []string
	for _, it := range items {
		if name := extract.Str(it, "name"); name != "" {
			names = append(names, name)
		}
	}
	// first crumb is the country
	if len(names) >= 2 {
		return strings.Join(names[1:], ", "), names[len(names)-1]
	}

	if m := evStreet.FindString(extract.MetaProperty(doc, "og:description")); m != "" {
		address = strings.TrimSpace(m)
	}
	return address, ""
}

func evFlag(explicit evBool, re *regexp.Regexp, text string) bool {
	if explicit.set {
		return explicit.value
	}
	return re.MatchString(text)
}

func evPhotos(doc extract.Document, html string, listing *evListing, hasListing bool, product, realEstate extract.Object) []string {
	photos := extract.PhotoSet{Key: extract.RegexKey(extract.UUIDPattern)}
	add := func(uuid string) {
		if uuid != "" {
			photos.Add(EngelVolkersPhotoURL(uuid))
		}
	}

	if hasListing && len(listing.PropertyImages) > 0 {
		images := append([]evImage(nil), listing.PropertyImages...)
		sort.SliceStable(images, func(i, j int) bool {
			return images[i].position() < images[j].position()
		})
		for _, img := range images {
			if img.Type == "image" || img.Type == "" {
				add(string(img.ID))
			}
		}
		for _, fp := range listing.FloorPlanImages {
			add(string(fp.ID))
		}
	}

	if photos.Len() == 0 {
		for _, id := range listing.UploadCareImageIDs {
			add(string(id))
		}
	}

	if photos.Len() == 0 {
		if m := evUUIDArray.FindStringSubmatch(html); m != nil {
			for _, id := range extract.UUIDPattern.FindAllString(m[1], -1) {
				add(id)
			}
		}
	}

	if photos.Len() == 0 {
		images := extract.Strings(product, "image")
		if len(images) == 0 {
			images = extract.Strings(realEstate, "image")
		}
		for _, img := range images {
			add(extract.UUIDPattern.FindString(img))
		}
		add(extract.UUIDPattern.FindString(extract.MetaProperty(doc, "og:image")))
	}
	return photos.Photos()
}
