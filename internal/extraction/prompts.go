package extraction

// DocumentPrompt is sent when the whole catalog goes to the model at once.
// It spells out where on the page each field lives because the model has to
// keep track of many pages in a single answer.
const DocumentPrompt = `
Você é um Especialista em Extração de Dados de Catálogos.
Analise este PDF página por página.

Sua missão é extrair cada produto listado seguindo RIGOROSAMENTE as regras de localização abaixo:

SCHEMA DE SAÍDA (Para cada produto):
{
    "nome do produto": "Extraia o nome exato do texto",
    "é kit": true ou false (Analise o nome do produto. Se contiver 'Kit', 'Conjunto', 'Peças' ou 'Par', marque como true),
    "categoria do produto": "Leia o cabeçalho ou o início da página onde o produto está inserido para encontrar a categoria macro",
    "código do produto": "Extraia o SKU/Código que está próximo da imagem (Geralmente precedido por COD, REF ou Q-)",
    "preço do produto": "O valor monetário encontrado próximo ao item",
    "titulos_otimizados_ia": ["Título SEO 1", "Título SEO 2", "Título SEO 3"]
}

Regra para "titulos_otimizados_ia": Use a visão computacional para identificar Cor, Material e Detalhes na foto e combine com o nome para criar 3 títulos de alta conversão.

SAÍDA:
Retorne APENAS um JSON Array válido contendo todos os produtos encontrados.
`

// BatchPrompt is sent for each page batch of a large catalog.
const BatchPrompt = `
Analise estas páginas do catálogo. Extraia TODOS os produtos.

SCHEMA OBRIGATÓRIO (JSON Array):
[{
    "nome do produto": "Texto exato",
    "é kit": boolean (true se nome tiver Kit/Conjunto),
    "categoria do produto": "Leia o cabeçalho da página",
    "código do produto": "SKU/COD perto da imagem",
    "preço do produto": "Valor monetário",
    "titulos_otimizados_ia": ["Titulo 1", "Titulo 2", "Titulo 3"]
}]

SAÍDA: Apenas JSON. Se não houver produtos nestas páginas, retorne [].
`
