package categories

import "github.com/fincontrol-dev/fincontrol/internal/model"

// Default returns the categories a new project starts with.
func Default() []model.Category {
	return append(defaultIncome(), defaultExpense()...)
}

func defaultIncome() []model.Category {
	return []model.Category{
		{ID: "r-salario", Name: "Salario", Type: model.TypeIncome},
		{ID: "r-freelance", Name: "Freelance", Type: model.TypeIncome},
		{ID: "r-investimentos", Name: "Investimentos", Type: model.TypeIncome},
		{ID: "r-vendas", Name: "Vendas", Type: model.TypeIncome},
		{ID: "r-servicos", Name: "Servicos", Type: model.TypeIncome},
		{ID: "r-outros", Name: "Outros", Type: model.TypeIncome},
	}
}

func defaultExpense() []model.Category {
	return []model.Category{
		{ID: "d-alimentacao", Name: "Alimentacao", Type: model.TypeExpense},
		{ID: "d-transporte", Name: "Transporte", Type: model.TypeExpense},
		{ID: "d-moradia", Name: "Moradia", Type: model.TypeExpense},
		{ID: "d-saude", Name: "Saude", Type: model.TypeExpense},
		{ID: "d-educacao", Name: "Educacao", Type: model.TypeExpense},
		{ID: "d-lazer", Name: "Lazer", Type: model.TypeExpense},
		{ID: "d-compras", Name: "Compras", Type: model.TypeExpense},
		{ID: "d-assinaturas", Name: "Assinaturas", Type: model.TypeExpense},
		{ID: "d-impostos", Name: "Impostos", Type: model.TypeExpense},
		{ID: "d-funcionarios", Name: "Funcionarios", Type: model.TypeExpense},
		{ID: "d-fornecedores", Name: "Fornecedores", Type: model.TypeExpense},
		{ID: "d-marketing", Name: "Marketing", Type: model.TypeExpense},
		{ID: "d-outros", Name: "Outros", Type: model.TypeExpense},
	}
}
