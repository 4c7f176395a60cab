package conversation

import (
	"fmt"
	"strings"

	"sazonbot/internal/core/catalog"
	"sazonbot/internal/core/order"
)

// 回覆文字（西班牙文）
const (
	msgWelcomeOrderFirst = "¡Bienvenido a Sazón Bot, el lugar donde todos tus antojos de almuerzo se hacen realidad! " +
		"¿Qué te gustaría pedir? Escribe la cantidad seguida del plato (por ejemplo: 2 ceviches y 1 lomo saltado)."
	msgAskDistrictFirst = "👨‍🍳 Antes de comenzar, ¿de dónde nos visitas? Por favor, menciona tu distrito (por ejemplo: Miraflores)."
	msgNoDishSelected   = "😊 No has seleccionado ningún plato del menú. Escribe la cantidad seguida del plato."
	msgUnknownDistrict  = "❌ No reconozco ese distrito. Por favor, menciona tu distrito nuevamente."
	msgNothingFound     = "❌ No encontré nada en tu pedido."
	msgNoDishes         = "No hay platos disponibles."
)

// FormatMenu 菜單的 Markdown 文字
func FormatMenu(dishes []catalog.Dish) string {
	if len(dishes) == 0 {
		return msgNoDishes
	}
	items := make([]string, len(dishes))
	for i, d := range dishes {
		items[i] = fmt.Sprintf("**%s**  \n%s  \n**Precio:** S/%.2f", d.Name, d.Description, d.Price)
	}
	return strings.Join(items, "\n\n")
}

func orderRegistered(o order.ResolvedOrder) string {
	return fmt.Sprintf("Tu pedido ha sido registrado: %s. ¿De qué distrito nos visitas? "+
		"Por favor, menciona tu distrito (por ejemplo: Miraflores).", o.String())
}

func unavailableSentence(names []string) string {
	return fmt.Sprintf("Lo siento, los siguientes platos no están disponibles: %s.", strings.Join(names, ", "))
}

func notDelivered(districts []string) string {
	return fmt.Sprintf("Lo siento, pero no entregamos en ese distrito. Distritos disponibles: %s.", strings.Join(districts, ", "))
}

func thanks(district string) string {
	return fmt.Sprintf("Gracias por tu pedido desde **%s**. ¡Tu pedido ha sido registrado con éxito! 🍽️", district)
}

func districtVerified(district string) string {
	return fmt.Sprintf("✅ Distrito verificado: %s.", district)
}

func availableList(o order.ResolvedOrder) string {
	var b strings.Builder
	b.WriteString("Tus pedidos disponibles son:")
	for _, l := range o.Lines() {
		fmt.Fprintf(&b, "\n- %dx %s", l.Quantity, l.Dish)
	}
	return b.String()
}

func unavailableList(names []string) string {
	var b strings.Builder
	b.WriteString("Los siguientes platos no están disponibles:")
	for _, n := range names {
		b.WriteString("\n- " + n)
	}
	return b.String()
}
