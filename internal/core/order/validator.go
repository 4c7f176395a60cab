package order

import "sazonbot/internal/core/catalog"

// Validate 以菜名完全相等判斷是否在菜單內，將訂單分為可供應與不可供應兩部分
func Validate(o ResolvedOrder, dishes []catalog.Dish) Outcome {
	menu := make(map[string]struct{}, len(dishes))
	for _, d := range dishes {
		menu[d.Name] = struct{}{}
	}

	out := Outcome{Unavailable: []string{}}
	for _, line := range o.lines {
		if _, ok := menu[line.Dish]; ok {
			out.Available.Add(line.Dish, line.Quantity)
			continue
		}
		out.Unavailable = append(out.Unavailable, line.Dish)
	}
	return out
}
