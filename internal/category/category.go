// Package category defines the closed set of support categories and the
// ordered keyword table used to assign them. Table order is significant: it is
// the tie-break when a text matches keywords from several categories and the
// row order of every report.
package category

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category names one support issue type.
type Category string

const (
	// Pending is the catch-all used when no keyword matches or an audio
	// attachment cannot be resolved.
	Pending Category = "Adjunto (pendiente clasificar)"

	// ImagePending is used when an image has neither text nor a visual verdict.
	ImagePending Category = "Imagen (pendiente clasificar)"

	// ImageNotFound is used when an image attachment cannot be resolved.
	ImageNotFound Category = "Imagen no encontrada"
)

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category Category `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in keyword table in declaration order.
func DefaultRules() []Rule {
	return []Rule{
		{"Impresora y Cajon", []string{"impresora", "cajón", "cajon"}},
		{"UPS", []string{"ups"}},
		{"Equipo Fisico", []string{"torre", "pantalla", "cpu", "equipo", "computador"}},
		{"Perifericos", []string{"mouse", "teclado", "cable"}},
		{"FrontRest", []string{"frontrest", "pos", "front", "cambio de clave", "cambiando la clave"}},
		{"SQL", []string{"sql", "minutas", "sql server"}},
		{"Creacion de usuario", []string{"crear usuario", "usuario nuevo", "registro", "huella", "auxiliar nuevo", "usuario de chico nuevo"}},
		{"Actualizacion de SAP", []string{"actualizacion sap", "actualizar sap"}},
		{"Descuadres de Facturas", []string{"factura mal", "descuadre", "nota credito", "abono"}},
		{"Consumos con Valor", []string{"consumo con valor"}},
		{"Soporte Sap", []string{"sap", "caido sap", "sap no funciona"}},
		{"Soporte Biable", []string{"biable"}},
		{"Cambio de Discos", []string{"disco duro", "cambio disco"}},
		{"Soporte Renta sistemas", []string{"renta sistemas para revisar"}},
		{"Instalacion Swich", []string{"swich", "switch", "cambio swich"}},
		{"Soporte de Red", []string{"red", "internet", "conexion", "cableado", "no tengo internet"}},
		{"Instalacion Biometrico", []string{"biometrico", "huella"}},
		{"Soporte Biometrico", []string{"ayudar con biometrico", "no muestra las marcaciones"}},
		{"Creacion de Promociones", []string{"promocion", "descuento especial", "no aparece la promocion"}},
		{"Compra de Equipos", []string{"comprar equipo", "compra computador"}},
		{"Inventarios", []string{"inventario", "baja", "traslado"}},
		{"Pedidos de suministros", []string{"suministro", "pedido insumo"}},
		{"Soporte con proveedores", []string{"claro", "etb", "tigo", "appitec"}},
		{"Informes", []string{"informe", "reporte", "sacar informe", "me ayudas con el informe"}},
		{"Cambio de precios", []string{"cambio precio", "precio"}},
		{"Soporte a Legis", []string{"legis"}},
		{"Soporte Manager", []string{"manager", "no tengo icg"}},
		{"Vencimiento del Dominio", []string{"dominio vencido"}},
		{"Soporte de Correo", []string{"correo", "email", "outlook", "me ayudan con el correo", "no tengo correo"}},
		{"Backup", []string{"backup", "copia seguridad", "no encuentro un archivo"}},
		{"Eventos", []string{"video beam", "sonido", "evento", "me ayudan a poner musica", "me ayudan con el audio"}},
		{"Actualizacion de Resoluciones pv", []string{"resolucion", "vencio la resolucion"}},
		{"Aperturas de Pv", []string{"apertura punto", "abrir pv"}},
		{"Sincronizacion de Suministros", []string{"sincronizacion suministros"}},
		{"Sincronizacion de ventas", []string{"sincronizacion ventas"}},
		{"Factura Electronica", []string{"factura electronica", "facturacion electronica"}},
		{"Capacitaciones", []string{"capacitacion", "entrenamiento"}},
		{"Soporte plataformas", []string{"didi", "rappi", "justo"}},
		{"Office", []string{"office", "word", "excel", "powerpoint"}},
	}
}

// Universe returns every category a report shows, in display order: the rule
// categories, then the catch-all, then the image diagnostics.
func Universe(rules []Rule) []Category {
	out := make([]Category, 0, len(rules)+3)
	seen := make(map[Category]bool, len(rules)+3)
	add := func(c Category) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, r := range rules {
		add(r.Category)
	}
	add(Pending)
	add(ImagePending)
	add(ImageNotFound)
	return out
}

type rulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadRules reads an ordered keyword table from a YAML file of the form
//
//	categories:
//	  - name: Impresora y Cajon
//	    keywords: [impresora, cajon]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("categories %s: no categories defined", path)
	}

	seen := make(map[Category]bool)
	for i, r := range f.Categories {
		name := Category(strings.TrimSpace(string(r.Category)))
		if name == "" {
			return nil, fmt.Errorf("categories %s: entry %d has no name", path, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("categories %s: duplicate category %q", path, name)
		}
		seen[name] = true
		f.Categories[i].Category = name
	}
	return f.Categories, nil
}

// ErrUnknown is returned by Parse for names outside the universe.
var ErrUnknown = errors.New("unknown category")

// Parse maps a free-form name to a category of universe, ignoring case and
// surrounding spaces.
func Parse(universe []Category, name string) (Category, error) {
	name = strings.TrimSpace(name)
	for _, c := range universe {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, name)
}
