package places

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// categoryTypes maps folded Portuguese category names to Places API types.
// The nearby search takes API type identifiers, not display names, so the
// category stored on the business has to be translated back.
var categoryTypes = map[string][]string{
	"restaurante":              {"restaurant"},
	"pizzaria":                 {"pizza_restaurant"},
	"hamburgueria":             {"hamburger_restaurant"},
	"churrascaria":             {"barbecue_restaurant"},
	"lanchonete":               {"fast_food_restaurant"},
	"padaria":                  {"bakery"},
	"confeitaria":              {"bakery", "cafe"},
	"cafeteria":                {"cafe", "coffee_shop"},
	"cafe":                     {"cafe", "coffee_shop"},
	"bar":                      {"bar"},
	"sorveteria":               {"ice_cream_shop"},
	"acaiteria":                {"acai_shop", "ice_cream_shop"},
	"farmacia":                 {"pharmacy", "drugstore"},
	"drogaria":                 {"pharmacy", "drugstore"},
	"academia":                 {"gym", "fitness_center"},
	"salao de beleza":          {"beauty_salon"},
	"barbearia":                {"barber_shop"},
	"estetica":                 {"beauty_salon", "spa"},
	"manicure":                 {"nail_salon"},
	"petshop":                  {"pet_store"},
	"pet shop":                 {"pet_store"},
	"clinica veterinaria":      {"veterinary_care"},
	"veterinario":              {"veterinary_care"},
	"oficina mecanica":         {"car_repair"},
	"mecanica":                 {"car_repair"},
	"autopecas":                {"auto_parts_store"},
	"lava jato":                {"car_wash"},
	"supermercado":             {"supermarket", "grocery_store"},
	"mercado":                  {"grocery_store", "supermarket"},
	"mercearia":                {"grocery_store"},
	"acougue":                  {"butcher_shop"},
	"hortifruti":               {"grocery_store"},
	"loja de roupas":           {"clothing_store"},
	"boutique":                 {"clothing_store"},
	"calcados":                 {"shoe_store"},
	"otica":                    {"optician"},
	"joalheria":                {"jewelry_store"},
	"livraria":                 {"book_store"},
	"papelaria":                {"stationery_store"},
	"floricultura":             {"florist"},
	"imobiliaria":              {"real_estate_agency"},
	"advocacia":                {"lawyer"},
	"contabilidade":            {"accounting"},
	"clinica odontologica":     {"dental_clinic", "dentist"},
	"dentista":                 {"dentist"},
	"clinica medica":           {"medical_lab", "doctor"},
	"fisioterapia":             {"physiotherapist"},
	"psicologia":               {"psychologist"},
	"hotel":                    {"hotel", "lodging"},
	"pousada":                  {"bed_and_breakfast", "lodging"},
	"escola":                   {"school"},
	"autoescola":               {"driving_school"},
	"lavanderia":               {"laundry"},
	"loja de eletronicos":      {"electronics_store"},
	"assistencia tecnica":      {"cell_phone_store", "electronics_store"},
	"material de construcao":   {"hardware_store", "home_improvement_store"},
	"moveis":                   {"furniture_store"},
	"distribuidora de bebidas": {"liquor_store"},
	"tabacaria":                {"store"},
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldCategory lowercases and strips diacritics so "Farmácia" and
// "farmacia" hit the same table entry.
func foldCategory(category string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(category))
	}
	return folded
}

// CategoryTypes translates a business category, in Portuguese or as a
// Places display name, into API type identifiers for a nearby search.
// Unknown categories fall back to a folded snake_case guess, which the API
// ignores gracefully when it does not match a real type.
func CategoryTypes(category string) []string {
	folded := foldCategory(category)
	if folded == "" {
		return nil
	}
	if types, ok := categoryTypes[folded]; ok {
		return types
	}
	// Display names sometimes arrive with qualifiers like "Restaurante italiano".
	for key, types := range categoryTypes {
		if strings.HasPrefix(folded, key) {
			return types
		}
	}
	return []string{strings.ReplaceAll(folded, " ", "_")}
}
